// SPDX-License-Identifier: MIT

package epg

import (
	"cmp"
	"slices"
	"strings"
)

// Merge combines per-channel documents into one guide.
//
// Channels are unioned by id and the first occurrence wins; later metadata
// for the same id is ignored. Programmes are concatenated without any
// cross-channel stitching. Both lists are sorted so the output does not
// depend on the order the documents were discovered in.
func Merge(docs ...Guide) Guide {
	seen := make(map[string]struct{})
	var out Guide
	total := 0
	for _, d := range docs {
		total += len(d.Programmes)
	}
	out.Programmes = make([]Programme, 0, total)

	for _, d := range docs {
		for _, c := range d.Channels {
			if c.ID == "" {
				continue
			}
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			out.Channels = append(out.Channels, c)
		}
		out.Programmes = append(out.Programmes, d.Programmes...)
	}

	SortChannels(out.Channels)
	SortProgrammes(out.Programmes)
	return out
}

// AsGuide wraps a single channel document.
func (s Schedule) AsGuide() Guide {
	return Guide{Channels: []Channel{s.Channel}, Programmes: s.Programmes}
}

// SortChannels orders by lower-cased display name, then lower-cased id.
func SortChannels(channels []Channel) {
	slices.SortStableFunc(channels, func(a, b Channel) int {
		return cmp.Or(
			strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)),
			strings.Compare(strings.ToLower(a.ID), strings.ToLower(b.ID)),
			strings.Compare(a.ID, b.ID),
		)
	})
}

// SortProgrammes orders by start instant. Ties fall back to channel id, stop
// and title so equal starts from different channels have a fixed order.
func SortProgrammes(progs []Programme) {
	slices.SortStableFunc(progs, compareProgrammes)
}

func compareProgrammes(a, b Programme) int {
	return cmp.Or(
		a.Start.Compare(b.Start),
		strings.Compare(a.Channel, b.Channel),
		a.Stop.Compare(b.Stop),
		strings.Compare(a.Title, b.Title),
		strings.Compare(a.SubTitle, b.SubTitle),
		strings.Compare(a.Desc, b.Desc),
		strings.Compare(a.Start.Format(XMLTVLayout), b.Start.Format(XMLTVLayout)),
	)
}
