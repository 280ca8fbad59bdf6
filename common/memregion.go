package common

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// MemRegion represents a mapped memory region to a process
type MemRegion struct {
	Address     [2]uintptr
	Permissions string
	Offset      uint64
	Device      string
	Inode       uint64
	Pathname    string
}

// MemRegions returns the mapped memory regions of the process
func (p *Process) MemRegions() ([]MemRegion, error) {
	file, err := os.Open(fmt.Sprintf("/proc/%d/maps", p.pid))
	if err != nil {
		return nil, Error(err)
	}
	defer file.Close()

	return parseMemRegions(file)
}

func parseMemRegions(r io.Reader) ([]MemRegion, error) {
	regions := make([]MemRegion, 0)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var region MemRegion

		// address           perms offset  dev   inode   pathname
		// 08048000-08056000 r-xp 00000000 03:0c 64593   /usr/sbin/gpm
		fields, pathname := splitMapsLine(scanner.Text())
		if len(fields) < 5 {
			return nil, Errorf("malformed memory map line %q", scanner.Text())
		}

		// anonymous mappings have no pathname
		if pathname == "" {
			continue
		}

		_, err := fmt.Sscanf(strings.Join(fields, " "), "%x-%x %s %x %s %d",
			&region.Address[0], &region.Address[1],
			&region.Permissions,
			&region.Offset,
			&region.Device,
			&region.Inode)
		if err != nil {
			return nil, Errorf("malformed memory map line %q: %v", scanner.Text(), err)
		}
		region.Pathname = pathname

		regions = append(regions, region)
	}

	return regions, Error(scanner.Err())
}

// splitMapsLine returns the first five fields of a maps line and the rest of
// it as the pathname, which may contain spaces
func splitMapsLine(line string) ([]string, string) {
	fields := make([]string, 0, 5)
	rest := line
	for len(fields) < 5 {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			end = len(rest)
		}
		fields = append(fields, rest[:end])
		rest = rest[end:]
	}
	return fields, strings.TrimSpace(rest)
}

// ExePath returns the path of the executable image of the process
func (p *Process) ExePath() (string, error) {
	path, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", p.pid))
	return path, Error(err)
}

// LoadAddress returns the address the executable was mapped at.
// Non position independent executables are not relocated, so it is 0 for them.
func (p *Process) LoadAddress(pie bool) (uintptr, error) {
	if !pie {
		return 0, nil
	}

	exe, err := p.ExePath()
	if err != nil {
		return 0, Error(err)
	}

	regions, err := p.MemRegions()
	if err != nil {
		return 0, Error(err)
	}

	return findLoadAddress(regions, exe)
}

func findLoadAddress(regions []MemRegion, exe string) (uintptr, error) {
	for _, region := range regions {
		if region.Pathname == exe && region.Offset == 0 {
			return region.Address[0], nil
		}
	}

	return 0, Errorf("no mapping of %s found", exe)
}
