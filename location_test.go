package razdbg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in   string
		want Location
	}{
		{"0x401126", Location{Kind: AddressLocation, Address: 0x401126}},
		{"0X401126", Location{Kind: AddressLocation, Address: 0x401126}},
		{"*0X1139", Location{Kind: AddressLocation, Address: 0x1139}},
		{"*0x1139", Location{Kind: AddressLocation, Address: 0x1139}},
		{"*4096", Location{Kind: AddressLocation, Address: 4096}},
		{"main", Location{Kind: FunctionLocation, Function: "main"}},
		{"main.(*T).String", Location{Kind: FunctionLocation, Function: "main.(*T).String"}},
		{"ns::fn", Location{Kind: FunctionLocation, Function: "ns::fn"}},
		{"main.c:12", Location{Kind: LineLocation, File: "main.c", Line: 12}},
		{" src/a:b.c:7 ", Location{Kind: LineLocation, File: "src/a:b.c", Line: 7}},
	}

	for _, tt := range tests {
		loc, err := ParseLocation(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, *loc, tt.in)
	}
}

func TestParseInvalidLocation(t *testing.T) {
	for _, in := range []string{"", "0xzz", "0Xzz", "*main", "main.c:0", ":12"} {
		_, err := ParseLocation(in)
		assert.Error(t, err, in)
	}
}

func TestLocationString(t *testing.T) {
	for _, in := range []string{"0x401126", "main", "main.c:12"} {
		loc, err := ParseLocation(in)
		require.NoError(t, err)
		assert.Equal(t, in, loc.String())
	}
}
