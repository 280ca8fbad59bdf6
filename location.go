package razdbg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/razzie/razdbg/common"
)

// LocationKind tells how a breakpoint location was specified
type LocationKind int

// Location kinds
const (
	AddressLocation LocationKind = iota
	FunctionLocation
	LineLocation
)

// Location is a parsed breakpoint location
type Location struct {
	Kind     LocationKind
	Address  uintptr
	Function string
	File     string
	Line     int
}

// ParseLocation parses "0xADDR", "*0xADDR", "file:line" or a function name
func ParseLocation(s string) (*Location, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, common.Errorf("empty location")
	}

	if addr := strings.TrimPrefix(s, "*"); isHexPrefixed(addr) || addr != s {
		v, err := strconv.ParseUint(addr, 0, 64)
		if err != nil {
			return nil, common.Errorf("invalid address %q", s)
		}
		return &Location{Kind: AddressLocation, Address: uintptr(v)}, nil
	}

	// a C++ scope like ns::fn is a function name
	if i := strings.LastIndex(s, ":"); i >= 0 {
		line, err := strconv.Atoi(s[i+1:])
		if err == nil {
			if line <= 0 || i == 0 {
				return nil, common.Errorf("invalid source line %q", s)
			}
			return &Location{Kind: LineLocation, File: s[:i], Line: line}, nil
		}
	}

	return &Location{Kind: FunctionLocation, Function: s}, nil
}

func isHexPrefixed(s string) bool {
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

func (loc *Location) String() string {
	switch loc.Kind {
	case AddressLocation:
		return fmt.Sprintf("%#x", loc.Address)
	case LineLocation:
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	default:
		return loc.Function
	}
}
