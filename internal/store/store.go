// SPDX-License-Identifier: MIT

// Package store keeps generated guides and mirrored feeds under one data
// directory. Writes replace files atomically, so readers never see a
// half-written document.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/pkepg/epgstitch/internal/compress"
	xglog "github.com/pkepg/epgstitch/internal/log"
)

// GzipSuffix marks the compressed companion of a document.
const GzipSuffix = ".gz"

// ErrInvalidPath rejects names that would leave the data directory.
var ErrInvalidPath = errors.New("path escapes data directory")

// Store is rooted at a directory of an afero filesystem.
type Store struct {
	fs   afero.Fs
	root string
	// maxRead bounds decompressed reads.
	maxRead int64
}

// New returns a Store over fsys rooted at root. On the OS filesystem
// writes go through renameio (fsync, then rename).
func New(fsys afero.Fs, root string) *Store {
	return &Store{fs: fsys, root: filepath.Clean(root), maxRead: 512 << 20}
}

// NewOS is New on the operating system filesystem.
func NewOS(root string) *Store {
	return New(afero.NewOsFs(), root)
}

// Fs exposes the underlying filesystem.
func (s *Store) Fs() afero.Fs { return s.fs }

// Root is the data directory.
func (s *Store) Root() string { return s.root }

// Path resolves a slash-separated name inside the data directory.
func (s *Store) Path(name string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(filepath.ToSlash(name), "./"))
	if clean == "." || !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Write atomically replaces name with data. With withGzip a name.gz
// companion is written as well.
func (s *Store) Write(ctx context.Context, name string, data []byte, withGzip bool) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := s.writeFile(ctx, p, data); err != nil {
		return err
	}
	if !withGzip {
		return nil
	}
	gz, err := compress.Gzip(data, filepath.Base(p))
	if err != nil {
		return fmt.Errorf("compress %s: %w", name, err)
	}
	return s.writeFile(ctx, p+GzipSuffix, gz)
}

func (s *Store) writeFile(ctx context.Context, p string, data []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", p, err)
	}
	if _, ok := s.fs.(*afero.OsFs); ok {
		return writeDurable(ctx, p, data)
	}
	tmp := p + ".tmp-" + uuid.NewString()
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := s.fs.Rename(tmp, p); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace %s: %w", p, err)
	}
	return nil
}

func writeDurable(ctx context.Context, p string, data []byte) error {
	logger := xglog.WithComponentFromContext(ctx, "store")

	pendingFile, err := renameio.NewPendingFile(p, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending file %s: %w", p, err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Str(xglog.FieldPath, p).Msg("cleanup pending file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", p, err)
	}
	return nil
}

// Read returns the content of name, decompressed when it is gzip data.
// When name is missing its .gz companion is tried.
func (s *Store) Read(name string) ([]byte, error) {
	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	b, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, fs.ErrNotExist) && !strings.HasSuffix(p, GzipSuffix) {
		b, err = afero.ReadFile(s.fs, p+GzipSuffix)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	out, _, err := compress.Gunzip(b, s.maxRead)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return out, nil
}

// Exists reports whether name or its .gz companion exists.
func (s *Store) Exists(name string) bool {
	p, err := s.Path(name)
	if err != nil {
		return false
	}
	for _, candidate := range []string{p, p + GzipSuffix} {
		if _, err := s.fs.Stat(candidate); err == nil {
			return true
		}
	}
	return false
}

// List returns the documents in dir matching the glob pattern, as sorted
// names relative to the data directory. A document present both plain and
// compressed is listed once, under its plain name.
func (s *Store) List(dir, pattern string) ([]string, error) {
	p, err := s.Path(dir)
	if err != nil {
		return nil, err
	}
	infos, err := afero.ReadDir(s.fs, p)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	seen := make(map[string]bool, len(infos))
	var out []string
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		name := strings.TrimSuffix(fi.Name(), GzipSuffix)
		if ok, _ := filepath.Match(pattern, name); !ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, path.Join(filepath.ToSlash(dir), name))
	}
	slices.Sort(out)
	return out, nil
}

// ModTime returns the modification time of name or its .gz companion.
func (s *Store) ModTime(name string) (time.Time, error) {
	p, err := s.Path(name)
	if err != nil {
		return time.Time{}, err
	}
	fi, err := s.fs.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		fi, err = s.fs.Stat(p + GzipSuffix)
	}
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// FreshToday reports whether name was last written on the same calendar
// day as now, both taken in loc.
func (s *Store) FreshToday(name string, now time.Time, loc *time.Location) bool {
	mod, err := s.ModTime(name)
	if err != nil {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	y1, m1, d1 := mod.In(loc).Date()
	y2, m2, d2 := now.In(loc).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
