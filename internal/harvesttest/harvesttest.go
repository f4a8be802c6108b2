// Package harvesttest provides canned pages and a map-backed fetcher for tests.
package harvesttest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

// Fetcher serves pages from memory. Unknown URLs fail with a 404 TransportError.
type Fetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string]error
	calls  map[string]int
	active int
	peak   int
	// Hook, when set, runs inside every Fetch before the page is returned.
	Hook func(url string)
}

// NewFetcher returns an empty Fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{
		pages: make(map[string]string),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

// Serve registers body for url.
func (f *Fetcher) Serve(url, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = body
	delete(f.errs, url)
}

// Fail makes url return err.
func (f *Fetcher) Fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
}

// Calls reports how often url was fetched.
func (f *Fetcher) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// Fetched returns every fetched URL, sorted.
func (f *Fetcher) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for u := range f.calls {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// PeakInFlight reports the highest number of concurrent Fetch calls observed.
func (f *Fetcher) PeakInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// Fetch implements harvest.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, url string) (harvest.Page, error) {
	f.mu.Lock()
	f.calls[url]++
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	body, ok := f.pages[url]
	err := f.errs[url]
	hook := f.Hook
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if hook != nil {
		hook(url)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return harvest.Page{}, &harvest.TransportError{URL: url, Err: ctxErr}
	}
	if err != nil {
		return harvest.Page{}, err
	}
	if !ok {
		return harvest.Page{}, &harvest.TransportError{URL: url, StatusCode: 404, Err: fmt.Errorf("no page")}
	}
	return harvest.Page{URL: url, StatusCode: 200, Body: []byte(body)}, nil
}

// RosterRow is one line of a season listing.
type RosterRow struct {
	Name     string
	URL      string
	Team     string
	Complete bool
}

// RosterPage renders a per-game listing.
func RosterPage(rows ...RosterRow) string {
	var b strings.Builder
	b.WriteString(`<html><body><table id="per_game_stats"><thead><tr><th>Rk</th></tr></thead><tbody>`)
	for i, r := range rows {
		class := ""
		if r.Complete {
			class = ` class="full_table"`
		}
		fmt.Fprintf(&b, `<tr%s><th data-stat="ranker">%d</th>`, class, i+1)
		fmt.Fprintf(&b, `<td data-stat="player"><a href="%s">%s</a></td>`, r.URL, r.Name)
		fmt.Fprintf(&b, `<td data-stat="team_id">%s</td></tr>`, r.Team)
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

// SeasonRow is one line of a profile's per-game table. Empty Team renders a
// "Did Not Play" row.
type SeasonRow struct {
	Season   string
	Age      string
	Team     string
	Position string
	Games    string
	Points   string
	Extra    map[string]string
}

// ProfilePage renders a player profile.
func ProfilePage(imageURL string, rows ...SeasonRow) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	if imageURL != "" {
		fmt.Fprintf(&b, `<div class="media-item"><img src="%s" alt="portrait"></div>`, imageURL)
	}
	b.WriteString(`<div id="all_per_game"><table id="per_game"><tbody>`)
	for _, r := range rows {
		fmt.Fprintf(&b, `<tr><th data-stat="season">%s</th>`, r.Season)
		fmt.Fprintf(&b, `<td data-stat="age">%s</td>`, r.Age)
		if r.Team == "" {
			b.WriteString(`<td data-stat="team_id"></td><td data-stat="reason" colspan="27">Did Not Play</td></tr>`)
			continue
		}
		fmt.Fprintf(&b, `<td data-stat="team_id">%s</td>`, r.Team)
		fmt.Fprintf(&b, `<td data-stat="pos">%s</td>`, r.Position)
		fmt.Fprintf(&b, `<td data-stat="g">%s</td>`, r.Games)
		fmt.Fprintf(&b, `<td data-stat="pts_per_g">%s</td>`, r.Points)
		keys := make([]string, 0, len(r.Extra))
		for k := range r.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, `<td data-stat="%s">%s</td>`, k, r.Extra[k])
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table></div></body></html>`)
	return b.String()
}
