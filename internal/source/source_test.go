// SPDX-License-Identifier: MIT

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkepg/epgstitch/internal/compress"
	"github.com/pkepg/epgstitch/internal/epg"
	"github.com/pkepg/epgstitch/internal/fetch"
	"github.com/pkepg/epgstitch/internal/schedule"
)

const schedulePage = `<html><body>
<!-- Monday -->
<div class="post"><i class="far fa-clock"></i> 06:00 AM
<h4 class="post-title">Morning <b>Show</b></h4></div>
<div class="post"><i class="far fa-clock"></i>
 07:30 AM - 09:00 AM
<h4 class="post-title">News &amp; Views</h4></div>
<!-- Tuesday -->
<div class="post"><i class="far fa-clock"></i> 9 PM<h4 class="post-title">Drama (R)</h4></div>
<h4 class="post-title">Orphan title</h4>
<!-- Footer widgets -->
<div class="post"><i class="far fa-clock"></i> 11 PM<h4 class="post-title">Not a day</h4></div>
</body></html>`

const catalogueJSON = `{"data":[
 {"title":"Drama One","description":" A story. ","schedule":[
   {"day":"Monday","times":[{"value":"20:00"},{"value":""}]},
   {"day":"Thursday","times":[{"value":"21:00"}]}]},
 {"title":"","schedule":[{"day":"Monday","times":[{"value":"22:00"}]}]},
 {"title":"No Slots"}
]}`

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="Other.uk"><display-name>Other</display-name></channel>
  <channel id="AlJazeera.qa"><display-name>Al Jazeera</display-name><icon src="http://logo/aj.png"/></channel>
  <programme start="20250310060000 +0100" stop="20250310070000 +0100" channel="AlJazeera.qa">
    <title>Newshour</title><desc>Headlines.</desc>
  </programme>
  <programme start="20250310060000 +0000" channel="Other.uk"><title>Elsewhere</title></programme>
  <programme start="bad" channel="AlJazeera.qa"><title>Broken</title></programme>
  <programme start="20250310070000 +0100" channel="AlJazeera.qa">
    <title>Inside Story</title><sub-title>Part 1</sub-title>
  </programme>
</tv>`

func TestParseWeeklyHTML(t *testing.T) {
	got, err := ParseWeeklyHTML([]byte(schedulePage), DefaultTimeSelector, DefaultTitleSelector)
	require.NoError(t, err)

	want := []epg.RawEntry{
		{Title: "Morning Show", StartToken: "06:00 AM", Weekday: "Monday"},
		{Title: "News & Views", StartToken: "07:30 AM", EndToken: "09:00 AM", Weekday: "Monday"},
		{Title: "Drama (R)", StartToken: "9 PM", Weekday: "Tuesday"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestParseWeeklyHTML_CommentClosesDay(t *testing.T) {
	page := `<!-- Sunday --><i class="fa-clock">8 PM</i><h4 class="post-title">Late Show</h4>
<!-- sidebar --><i class="fa-clock">9 PM</i><h4 class="post-title">Trending now</h4>`
	got, err := ParseWeeklyHTML([]byte(page), DefaultTimeSelector, DefaultTitleSelector)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, epg.RawEntry{Title: "Late Show", StartToken: "8 PM", Weekday: "Sunday"}, got[0])
}

func TestParseWeeklyHTML_NoSections(t *testing.T) {
	got, err := ParseWeeklyHTML([]byte(`<p><i class="fa-clock">8 PM</i><h4 class="post-title">X</h4></p>`),
		DefaultTimeSelector, DefaultTitleSelector)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelector_Matches(t *testing.T) {
	got, err := ParseWeeklyHTML([]byte(`<!-- Friday --><span class="slot time">10:00</span><p class="name">Talk</p>`),
		Selector{Tag: "span", Class: "time slot"}, Selector{Tag: "p"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "10:00", got[0].StartToken)
	assert.Equal(t, "Talk", got[0].Title)
	assert.Equal(t, "Friday", got[0].Weekday)
}

func TestSplitRange(t *testing.T) {
	tests := []struct {
		in, start, end string
	}{
		{"8:00 PM - 9:00 PM", "8:00 PM", "9:00 PM"},
		{"8:00PM–9:00PM", "8:00PM", "9:00PM"},
		{"20:00 to 21:00", "20:00", "21:00"},
		{" 6 AM ", "6 AM", ""},
	}
	for _, tt := range tests {
		start, end := SplitRange(tt.in)
		assert.Equal(t, tt.start, start, tt.in)
		assert.Equal(t, tt.end, end, tt.in)
	}
}

func TestParseCatalogue(t *testing.T) {
	got, err := ParseCatalogue([]byte(catalogueJSON))
	require.NoError(t, err)
	want := []epg.RawEntry{
		{Title: "Drama One", Desc: "A story.", StartToken: "20:00", Weekday: "Monday"},
		{Title: "Drama One", Desc: "A story.", StartToken: "21:00", Weekday: "Thursday"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	_, err = ParseCatalogue([]byte(`{"data":`))
	assert.Error(t, err)
}

func testClient() *fetch.Client {
	return fetch.New(fetch.Options{
		Timeout:     2 * time.Second,
		Attempts:    1,
		Backoff:     time.Millisecond,
		RatePerHost: 1000,
		Burst:       100,
	}, nil)
}

func TestWeeklyHTML_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Date", "Mon, 10 Mar 2025 04:00:00 GMT")
		_, _ = w.Write([]byte(schedulePage))
	}))
	defer srv.Close()

	a, err := New(Spec{Kind: KindWeeklyHTML, URLs: []string{srv.URL}}, Deps{HTTP: testClient()})
	require.NoError(t, err)
	res, err := a.Fetch(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Entries, 3)
	assert.Equal(t, schedule.Weekly, res.Mode)
	assert.True(t, res.Now.Equal(time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC)))
	assert.Nil(t, res.Channel)
}

func TestWeeklyJSON_FetchConcatenates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dramas", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(catalogueJSON))
	})
	mux.HandleFunc("/tvshows", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"title":"Cooking","schedule":[{"day":"Sunday","times":[{"value":"11:00"}]}]}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a, err := New(Spec{Kind: KindWeeklyJSON, URLs: []string{srv.URL + "/dramas", srv.URL + "/tvshows"}}, Deps{HTTP: testClient()})
	require.NoError(t, err)
	res, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)
	assert.Equal(t, "Cooking", res.Entries[2].Title)
	assert.False(t, res.Now.IsZero())
}

func TestWeeklyJSON_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	a, err := New(Spec{Kind: KindWeeklyJSON, URLs: []string{srv.URL}}, Deps{HTTP: testClient()})
	require.NoError(t, err)
	_, err = a.Fetch(context.Background())
	assert.ErrorIs(t, err, fetch.ErrTransport)
}

func TestXMLTV_FromMirroredFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	gz, err := compress.Gzip([]byte(feed), "feed.xml")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/data/feeds/aljazeera.xml.gz", gz, 0o644))

	now := time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC)
	a, err := New(Spec{Kind: KindXMLTV, File: "/data/feeds/aljazeera.xml.gz", SourceChannel: "AlJazeera.qa"},
		Deps{Fs: fs, Now: func() time.Time { return now }})
	require.NoError(t, err)

	res, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schedule.Timeline, res.Mode)
	assert.Equal(t, now, res.Now)
	require.NotNil(t, res.Channel)
	assert.Equal(t, epg.Channel{ID: "AlJazeera.qa", DisplayName: "Al Jazeera", Logo: "http://logo/aj.png"}, *res.Channel)

	want := []epg.RawEntry{
		{Title: "Newshour", Desc: "Headlines.", StartToken: "20250310060000 +0100", EndToken: "20250310070000 +0100"},
		{Title: "Broken", StartToken: "bad"},
		{Title: "Inside Story", SubTitle: "Part 1", StartToken: "20250310070000 +0100"},
	}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestXMLTV_DownloadUsesServerClock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Date", "Mon, 10 Mar 2025 04:00:00 GMT")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	local := time.Date(2025, 3, 12, 23, 0, 0, 0, time.UTC)
	a, err := New(Spec{Kind: KindXMLTV, URLs: []string{srv.URL}, SourceChannel: "AlJazeera.qa"},
		Deps{HTTP: testClient(), Now: func() time.Time { return local }})
	require.NoError(t, err)

	res, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Now.Equal(time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC)), "got %s", res.Now)
	assert.Len(t, res.Entries, 3)
}

func TestXMLTV_ChannelMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "feed.xml", []byte(feed), 0o644))

	a, err := New(Spec{Kind: KindXMLTV, File: "feed.xml", SourceChannel: "Nope.pk"}, Deps{Fs: fs})
	require.NoError(t, err)
	_, err = a.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestXMLTV_FromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	progs, err := Reference(context.Background(),
		Spec{URLs: []string{srv.URL}, SourceChannel: "AlJazeera.qa"},
		Deps{HTTP: testClient()})
	require.NoError(t, err)
	require.Len(t, progs, 2)
	assert.Equal(t, "Newshour", progs[0].Title)
	assert.Equal(t, "Headlines.", progs[0].Desc)
	assert.True(t, progs[1].Stop.IsZero())
}

func TestGeneric(t *testing.T) {
	now := time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC)
	a, err := New(Spec{Kind: KindGeneric}, Deps{Now: func() time.Time { return now }})
	require.NoError(t, err)
	res, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Equal(t, now, res.Now)
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(Spec{Kind: "rss"}, Deps{})
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = New(Spec{Kind: KindWeeklyHTML}, Deps{})
	assert.Error(t, err)

	_, err = New(Spec{Kind: KindXMLTV, File: "x.xml"}, Deps{})
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Weekly-HTML ")
	require.NoError(t, err)
	assert.Equal(t, KindWeeklyHTML, k)

	_, err = ParseKind("ical")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
