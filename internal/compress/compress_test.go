// SPDX-License-Identifier: MIT

package compress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="epgstitch"></tv>
`

func TestGzipRoundTrip(t *testing.T) {
	gz, err := Gzip([]byte(doc), "guide.xml")
	require.NoError(t, err)
	assert.True(t, IsGzip(gz))
	assert.False(t, IsGzip([]byte(doc)))

	out, compressed, err := Gunzip(gz, 0)
	require.NoError(t, err)
	assert.True(t, compressed)
	assert.Equal(t, doc, string(out))
}

func TestGunzip_PlainPassesThrough(t *testing.T) {
	out, compressed, err := Gunzip([]byte(doc), 10)
	require.NoError(t, err)
	assert.False(t, compressed)
	assert.Equal(t, doc, string(out))
}

func TestGunzip_Limit(t *testing.T) {
	gz, err := Gzip([]byte(strings.Repeat("x", 4096)), "big")
	require.NoError(t, err)

	_, _, err = Gunzip(gz, 1024)
	assert.ErrorIs(t, err, ErrTooLarge)

	out, _, err := Gunzip(gz, 4096)
	require.NoError(t, err)
	assert.Len(t, out, 4096)
}

func TestGunzip_Corrupt(t *testing.T) {
	gz, err := Gzip([]byte(doc), "guide.xml")
	require.NoError(t, err)
	corrupt := append([]byte(nil), gz[:12]...)
	_, compressed, err := Gunzip(corrupt, 0)
	assert.True(t, compressed)
	assert.Error(t, err)
}
