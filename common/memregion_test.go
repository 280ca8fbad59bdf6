package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaps = `555555554000-555555556000 r--p 00000000 08:01 1835047                    /usr/bin/true
555555556000-55555555a000 r-xp 00002000 08:01 1835047                    /usr/bin/true
55555555d000-55555555e000 rw-p 00008000 08:01 1835047                    /usr/bin/true
55555555e000-55555557f000 rw-p 00000000 00:00 0                          [heap]
7ffff7d80000-7ffff7da8000 r--p 00000000 08:01 1836321                    /usr/lib/x86_64-linux-gnu/libc.so.6
7ffff7da8000-7ffff7f3d000 r-xp 00028000 08:01 1836321                    /usr/lib/x86_64-linux-gnu/libc.so.6
7ffff7f99000-7ffff7fa6000 rw-p 00000000 00:00 0 
7ffff7fc3000-7ffff7fc5000 r--p 00000000 08:01 1836318                    /usr/lib/x86_64-linux-gnu/ld-linux-x86-64.so.2
7ffff7fc5000-7ffff7fef000 r-xp 00002000 08:01 1836318                    /usr/lib/x86_64-linux-gnu/ld-linux-x86-64.so.2
7ffffffde000-7ffffffff000 rw-p 00000000 00:00 0                          [stack]
`

func TestParseMemRegions(t *testing.T) {
	regions, err := parseMemRegions(strings.NewReader(testMaps))
	require.NoError(t, err)
	require.Len(t, regions, 9, "anonymous mapping skipped")

	assert.Equal(t, MemRegion{
		Address:     [2]uintptr{0x555555556000, 0x55555555a000},
		Permissions: "r-xp",
		Offset:      0x2000,
		Device:      "08:01",
		Inode:       1835047,
		Pathname:    "/usr/bin/true",
	}, regions[1])
	assert.Equal(t, "[heap]", regions[3].Pathname)
}

const testMapsWithSpaces = `555555554000-555555555000 r--p 00000000 08:01 4242                       /home/u/my prog/a.out
555555555000-555555556000 r-xp 00001000 08:01 4242                       /home/u/my prog/a.out
7ffff7fc3000-7ffff7fc5000 r--p 00000000 08:01 1836318                    /usr/lib/x86_64-linux-gnu/ld-linux-x86-64.so.2 (deleted)
`

func TestParseMemRegionsWithSpacedPath(t *testing.T) {
	regions, err := parseMemRegions(strings.NewReader(testMapsWithSpaces))
	require.NoError(t, err)
	require.Len(t, regions, 3)
	assert.Equal(t, "/home/u/my prog/a.out", regions[1].Pathname)
	assert.Equal(t, uint64(0x1000), regions[1].Offset)
	assert.Equal(t, "/usr/lib/x86_64-linux-gnu/ld-linux-x86-64.so.2 (deleted)", regions[2].Pathname)

	load, err := findLoadAddress(regions, "/home/u/my prog/a.out")
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x555555554000), load)

	libs := sharedLibs(regions)
	require.Len(t, libs, 1)
	assert.Equal(t, "/usr/lib/x86_64-linux-gnu/ld-linux-x86-64.so.2", libs[0].Name)
}

func TestParseMalformedMemRegions(t *testing.T) {
	_, err := parseMemRegions(strings.NewReader("zzzz-0000 r--p 0 08:01 1 /bin/x\n"))
	assert.Error(t, err)

	_, err = parseMemRegions(strings.NewReader("00400000-00401000 r--p\n"))
	assert.Error(t, err)
}

func TestFindLoadAddress(t *testing.T) {
	regions, err := parseMemRegions(strings.NewReader(testMaps))
	require.NoError(t, err)

	load, err := findLoadAddress(regions, "/usr/bin/true")
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x555555554000), load)

	_, err = findLoadAddress(regions, "/usr/bin/false")
	assert.Error(t, err)
}

func TestSharedLibs(t *testing.T) {
	regions, err := parseMemRegions(strings.NewReader(testMaps))
	require.NoError(t, err)

	libs := sharedLibs(regions)
	require.Len(t, libs, 2)
	assert.Equal(t, "/usr/lib/x86_64-linux-gnu/libc.so.6", libs[0].Name)
	assert.Equal(t, uintptr(0x7ffff7d80000), libs[0].StaticBase)
	assert.Equal(t, "/usr/lib/x86_64-linux-gnu/ld-linux-x86-64.so.2", libs[1].Name)
}
