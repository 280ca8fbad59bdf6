package terminal

// commandGroup orders the help output
type commandGroup int

const (
	runCmds commandGroup = iota
	breakCmds
	dataCmds
	stackCmds
	otherCmds

	numGroups = int(iota)
)

func (g commandGroup) String() string {
	switch g {
	case runCmds:
		return "Execution"
	case breakCmds:
		return "Breakpoints"
	case dataCmds:
		return "Registers and memory"
	case stackCmds:
		return "Call stack"
	default:
		return "Session"
	}
}
