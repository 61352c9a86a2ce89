// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"

	xglog "github.com/pkepg/epgstitch/internal/log"
	"github.com/pkepg/epgstitch/internal/store"
)

// guideFiles serves documents from the data directory. Clients that accept
// gzip get the stored .gz companion as is; others get the plain document,
// decompressed on the fly when only the companion exists. Directories are
// never listed.
func (s *Server) guideFiles() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := xglog.WithComponentFromContext(r.Context(), "api")
		name := chi.URLParam(r, "*")
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}

		deny := func(code int, reason string) {
			logger.Warn().
				Str(xglog.FieldEvent, "file_req.denied").
				Str(xglog.FieldPath, name).
				Str("reason", reason).
				Msg("guide request refused")
			recordFileRequestDenied(reason)
			writeError(w, r, code, reason, http.StatusText(code))
		}

		if name == "" || strings.HasSuffix(name, "/") {
			deny(http.StatusForbidden, "directory_listing")
			return
		}
		if strings.ContainsAny(name, "\x00\\") {
			deny(http.StatusForbidden, "path_escape")
			return
		}
		p, err := s.store.Path(name)
		if err != nil {
			deny(http.StatusForbidden, "path_escape")
			return
		}
		fsys := s.store.Fs()

		if acceptsGzip(r) && !strings.HasSuffix(name, store.GzipSuffix) {
			f, info, err := openFile(fsys, p+store.GzipSuffix)
			if err == nil {
				defer f.Close()
				serveDocument(w, r, name, info.ModTime(), info.Size(), f, "gzip")
				return
			}
		}

		f, info, err := openFile(fsys, p)
		switch {
		case err == nil:
			defer f.Close()
			serveDocument(w, r, name, info.ModTime(), info.Size(), f, "identity")
		case errors.Is(err, errIsDir):
			deny(http.StatusForbidden, "directory_listing")
		case errors.Is(err, fs.ErrNotExist):
			data, rerr := s.store.Read(name)
			if rerr != nil {
				deny(http.StatusNotFound, "not_found")
				return
			}
			mod, _ := s.store.ModTime(name)
			serveDocument(w, r, name, mod, int64(len(data)), bytes.NewReader(data), "identity")
		default:
			logger.Error().Err(err).Str(xglog.FieldEvent, "file_req.internal_error").Str(xglog.FieldPath, name).Msg("could not open document")
			deny(http.StatusInternalServerError, "internal_error")
		}
	})
}

var errIsDir = errors.New("is a directory")

func openFile(fsys afero.Fs, p string) (afero.File, fs.FileInfo, error) {
	info, err := fsys.Stat(p)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return nil, nil, errIsDir
	}
	f, err := fsys.Open(p)
	if err != nil {
		return nil, nil, err
	}
	return f, info, nil
}

func serveDocument(w http.ResponseWriter, r *http.Request, name string, mod time.Time, size int64, content io.ReadSeeker, encoding string) {
	h := w.Header()
	etag := fmt.Sprintf(`W/"%x-%x"`, mod.UnixNano(), size)
	if encoding == "gzip" {
		etag = fmt.Sprintf(`W/"%x-%x-gz"`, mod.UnixNano(), size)
		h.Set("Content-Encoding", "gzip")
	}
	h.Set("ETag", etag)
	h.Set("Cache-Control", "public, max-age=300")
	h.Add("Vary", "Accept-Encoding")

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		recordFileCacheHit()
		w.WriteHeader(http.StatusNotModified)
		return
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".xml":
		h.Set("Content-Type", "application/xml; charset=utf-8")
	case ".gz":
		h.Set("Content-Type", "application/gzip")
	}
	recordFileServed(encoding)
	http.ServeContent(w, r, path.Base(name), mod, content)
}

// acceptsGzip reports whether Accept-Encoding allows gzip with a non-zero
// quality.
func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		token, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "gzip" && token != "*" {
			continue
		}
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		if q == "q=0" || q == "q=0.0" || q == "q=0.00" || q == "q=0.000" {
			return false
		}
		return true
	}
	return false
}
