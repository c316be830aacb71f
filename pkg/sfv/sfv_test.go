package sfv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasic(t *testing.T) {
	input := "; generated by rescene\r\n" +
		"\r\n" +
		"release.rar 5A2D9B1C\r\n" +
		"release.r00 0012AB34\r\n"

	entries, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "release.rar", entries[0].Name)
	assert.Equal(t, uint32(0x5A2D9B1C), entries[0].CRC)
	assert.Equal(t, "release.r00", entries[1].Name)
	assert.Equal(t, uint32(0x0012AB34), entries[1].CRC)
}

func TestParseNameWithSpaces(t *testing.T) {
	entries, err := Parse(strings.NewReader("my cool release.rar ABCDEF01\n"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "my cool release.rar", entries[0].Name)
	assert.Equal(t, uint32(0xABCDEF01), entries[0].CRC)
}

func TestParseInvalidChecksum(t *testing.T) {
	_, err := Parse(strings.NewReader("release.rar notahex\n"))
	assert.Error(t, err)
}

func TestParseIgnoresCommentsAndBlankLines(t *testing.T) {
	entries, err := Parse(strings.NewReader("; comment\n\n   \nrelease.rar 00000000\n"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
