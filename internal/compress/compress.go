// SPDX-License-Identifier: MIT

// Package compress detects and handles gzip-wrapped guide documents.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
)

// ErrTooLarge is returned when decompressed content exceeds the caller's limit.
var ErrTooLarge = errors.New("decompressed content exceeds limit")

// IsGzip sniffs the content, not the file name.
func IsGzip(b []byte) bool {
	return mimetype.Detect(b).Is("application/gzip")
}

// Gunzip returns b unchanged when it is not gzip data, otherwise its
// decompressed content. limit <= 0 means unbounded.
func Gunzip(b []byte, limit int64) ([]byte, bool, error) {
	if !IsGzip(b) {
		return b, false, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, true, fmt.Errorf("open gzip stream: %w", err)
	}
	defer zr.Close()

	var r io.Reader = zr
	if limit > 0 {
		r = io.LimitReader(zr, limit+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, true, fmt.Errorf("read gzip stream: %w", err)
	}
	if limit > 0 && int64(len(out)) > limit {
		return nil, true, ErrTooLarge
	}
	return out, true, nil
}

// Gzip compresses b at the default level.
func Gzip(b []byte, name string) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Name = name
	if _, err := zw.Write(b); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}
