// SPDX-License-Identifier: MIT

package epg

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	idUnsafe     = regexp.MustCompile(`[^a-zA-Z0-9\s.\-_]`)
	idSeparators = regexp.MustCompile(`[\s.\-_]+`)
)

// StableID derives an XMLTV channel id from a display name, e.g.
// ("PTV News", "pk") -> "PTV.News.pk". Non-Latin names are transliterated
// so ids stay ASCII.
func StableID(displayName, suffix string) string {
	base := joinFolded(displayName, ".")
	if base == "" {
		return ""
	}
	if suffix = joinFolded(suffix, "."); suffix != "" {
		return base + "." + strings.ToLower(suffix)
	}
	return base
}

// FileSlug derives a file name stem from a display name, e.g.
// "Geo News" -> "Geo-News".
func FileSlug(displayName string) string {
	return joinFolded(displayName, "-")
}

func joinFolded(s, sep string) string {
	s = unidecode.Unidecode(strings.TrimSpace(s))
	s = idUnsafe.ReplaceAllString(s, "")
	s = idSeparators.ReplaceAllString(s, sep)
	return strings.Trim(s, sep)
}
