// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkepg/epgstitch/internal/compress"
)

func TestWrite_PlainAndGzip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/data")
	doc := []byte("<tv></tv>")

	require.NoError(t, s.Write(context.Background(), "channels/PTV-News.xml", doc, true))

	plain, err := afero.ReadFile(fs, "/data/channels/PTV-News.xml")
	require.NoError(t, err)
	assert.Equal(t, doc, plain)

	gz, err := afero.ReadFile(fs, "/data/channels/PTV-News.xml.gz")
	require.NoError(t, err)
	assert.True(t, compress.IsGzip(gz))

	got, err := s.Read("channels/PTV-News.xml.gz")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestWrite_ReplacesAndLeavesNoTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/data")
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "a.xml", []byte("old"), false))
	require.NoError(t, s.Write(ctx, "a.xml", []byte("new"), false))

	got, err := s.Read("a.xml")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	infos, err := afero.ReadDir(fs, "/data")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "a.xml", infos[0].Name())
}

func TestRead_FallsBackToCompressedCompanion(t *testing.T) {
	fs := afero.NewMemMapFs()
	gz, err := compress.Gzip([]byte("<tv/>"), "guide.xml")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/data/guide.xml.gz", gz, 0o644))

	s := New(fs, "/data")
	got, err := s.Read("guide.xml")
	require.NoError(t, err)
	assert.Equal(t, "<tv/>", string(got))
	assert.True(t, s.Exists("guide.xml"))
	assert.False(t, s.Exists("other.xml"))

	_, err = s.Read("missing.xml")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPath_RejectsEscapes(t *testing.T) {
	s := New(afero.NewMemMapFs(), "/data")
	for _, name := range []string{"../etc/passwd", "/abs.xml", "", ".", "a/../../b"} {
		_, err := s.Path(name)
		assert.ErrorIs(t, err, ErrInvalidPath, name)
	}

	p, err := s.Path("channels/x.xml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "channels", "x.xml"), p)
}

func TestList_SortedAndDeduplicated(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, name := range []string{"b.xml", "a.xml", "a.xml.gz", "c.xml.gz", "notes.txt"} {
		require.NoError(t, afero.WriteFile(fs, "/data/channels/"+name, []byte("x"), 0o644))
	}
	require.NoError(t, fs.MkdirAll("/data/channels/sub.xml", 0o755))

	got, err := New(fs, "/data").List("channels", "*.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{"channels/a.xml", "channels/b.xml", "channels/c.xml"}, got)
}

func TestFreshToday(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/data")
	require.NoError(t, s.Write(context.Background(), "feeds/uk.xml", []byte("x"), false))

	pkt := time.FixedZone("+0500", 5*3600)
	// 2025-03-10 20:30 UTC is already 2025-03-11 in +05:00.
	mod := time.Date(2025, 3, 10, 20, 30, 0, 0, time.UTC)
	require.NoError(t, fs.Chtimes("/data/feeds/uk.xml", mod, mod))

	assert.True(t, s.FreshToday("feeds/uk.xml", time.Date(2025, 3, 11, 9, 0, 0, 0, pkt), pkt))
	assert.False(t, s.FreshToday("feeds/uk.xml", time.Date(2025, 3, 11, 9, 0, 0, 0, pkt), time.UTC))
	assert.False(t, s.FreshToday("feeds/missing.xml", mod, pkt))
}

func TestWrite_OsFs(t *testing.T) {
	dir := t.TempDir()
	s := NewOS(dir)
	require.NoError(t, s.Write(context.Background(), "out/guide.xml", []byte("<tv/>"), true))

	b, err := os.ReadFile(filepath.Join(dir, "out", "guide.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<tv/>", string(b))

	got, err := s.Read("out/guide.xml.gz")
	require.NoError(t, err)
	assert.Equal(t, "<tv/>", string(got))
}
