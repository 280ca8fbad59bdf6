package common

import (
	"strings"
)

// SharedLibrary represents a shared library
type SharedLibrary struct {
	Name       string
	StaticBase uintptr
}

// SharedLibs returns the shared libraries loaded by the process and their static bases
func (p *Process) SharedLibs() ([]SharedLibrary, error) {
	regions, err := p.MemRegions()
	if err != nil {
		return nil, Error(err)
	}

	return sharedLibs(regions), nil
}

func sharedLibs(regions []MemRegion) []SharedLibrary {
	var lastLib string
	var libs []SharedLibrary

	for _, region := range regions {
		name := strings.TrimSuffix(region.Pathname, " (deleted)")
		if name == lastLib {
			continue
		}

		if !strings.HasSuffix(name, ".so") && !strings.Contains(name, ".so.") {
			continue
		}

		lastLib = name
		lib := SharedLibrary{Name: name, StaticBase: region.Address[0]}
		libs = append(libs, lib)
	}

	return libs
}
