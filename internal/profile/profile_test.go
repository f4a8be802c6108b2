package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/hoops-harvester/internal/document"
	"github.com/JakeFAU/hoops-harvester/internal/harvest"
	"github.com/JakeFAU/hoops-harvester/internal/harvesttest"
)

const (
	base     = "https://stats.example.com"
	jordan   = "/players/x/jordan01.html"
	portrait = "https://img.example.com/jordan01.jpg"
)

var ref = harvest.ProfileReference{Name: "Jordan, X", URL: jordan}

func scraperFor(t *testing.T, body string) (*Scraper, *harvesttest.Fetcher) {
	t.Helper()
	f := harvesttest.NewFetcher()
	f.Serve(base+jordan, body)
	return NewScraper(f, document.NewParser(), base, nil), f
}

func TestScrapeDropsSeasonsWithoutTeam(t *testing.T) {
	t.Parallel()

	s, _ := scraperFor(t, harvesttest.ProfilePage(portrait,
		harvesttest.SeasonRow{Season: "2015-16", Age: "21", Team: "CHI", Position: "SG", Games: "82", Points: "20.1"},
		harvesttest.SeasonRow{Season: "2016-17", Age: "22", Team: "CHI", Position: "SG", Games: "80", Points: "24.3"},
		harvesttest.SeasonRow{Season: "2017-18", Age: "23"},
		harvesttest.SeasonRow{Season: "2018-19", Age: "24", Team: "WAS", Position: "SF", Games: "60", Points: "18.0"},
		harvesttest.SeasonRow{Season: "2019-20", Age: "25", Team: "WAS", Position: "SF", Games: "71", Points: "22.7"},
	))

	snap, err := s.Scrape(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, snap.Stats, 4)
	for _, rec := range snap.Stats {
		require.NotEmpty(t, rec.Team)
	}
	require.Equal(t, portrait, snap.ImageURL)
	require.Equal(t, []string{"2015-16", "2016-17", "2018-19", "2019-20"}, seasons(snap))
}

func TestScrapeSnapshotTracksLastRetainedRow(t *testing.T) {
	t.Parallel()

	s, _ := scraperFor(t, harvesttest.ProfilePage("",
		harvesttest.SeasonRow{Season: "2018-19", Age: "24", Team: "WAS", Position: "SF", Games: "60"},
		harvesttest.SeasonRow{Season: "2019-20", Age: "25", Team: "TOT", Position: "PF", Games: "50"},
		harvesttest.SeasonRow{Season: "2019-20", Age: "25", Team: "BOS", Position: "C", Games: "20"},
		harvesttest.SeasonRow{Season: "2020-21", Age: "26"},
	))

	snap, err := s.Scrape(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, 25, snap.Age)
	require.Equal(t, "C", snap.Position)
	require.Equal(t, "BOS", snap.CurrentTeam)
	require.Empty(t, snap.ImageURL)
	last, ok := snap.Latest()
	require.True(t, ok)
	require.Equal(t, 20, last.GamesPlayed)
}

func TestScrapeNumericDefaults(t *testing.T) {
	t.Parallel()

	s, _ := scraperFor(t, harvesttest.ProfilePage("",
		harvesttest.SeasonRow{
			Season: "2020-21", Age: "", Team: "LAL", Position: "PG", Games: "", Points: "-",
			Extra: map[string]string{
				"gs":      "12*",
				"fg3_pct": "",
				"fg_pct":  ".455",
				"ft_pct":  "n/a",
			},
		},
	))

	snap, err := s.Scrape(context.Background(), ref)
	require.NoError(t, err)
	rec := snap.Stats[0]
	require.Zero(t, snap.Age)
	require.Zero(t, rec.GamesPlayed)
	require.Equal(t, 12, rec.GamesStarted)
	require.Zero(t, rec.Points)
	require.Zero(t, rec.ThreePointFieldGoalPct)
	require.Zero(t, rec.FreeThrowPct)
	require.InDelta(t, 0.455, rec.FieldGoalPct, 1e-9)
	require.Zero(t, rec.MinutesPlayed, "absent cells default to zero")
}

func TestScrapeEmptyProfile(t *testing.T) {
	t.Parallel()

	s, _ := scraperFor(t, harvesttest.ProfilePage(portrait,
		harvesttest.SeasonRow{Season: "2019-20", Age: "30"},
	))

	_, err := s.Scrape(context.Background(), ref)
	require.ErrorIs(t, err, harvest.ErrEmptyProfile)
	require.NotErrorIs(t, err, harvest.ErrTransport)
}

func TestScrapePropagatesTransportError(t *testing.T) {
	t.Parallel()

	f := harvesttest.NewFetcher()
	s := NewScraper(f, document.NewParser(), base, nil)

	_, err := s.Scrape(context.Background(), ref)
	require.ErrorIs(t, err, harvest.ErrTransport)
	require.NotErrorIs(t, err, harvest.ErrEmptyProfile)
}

func TestProfileURL(t *testing.T) {
	t.Parallel()

	s := NewScraper(nil, nil, base+"/", nil)
	require.Equal(t, base+jordan, s.ProfileURL(ref))
	require.Equal(t, base+"/players/y.html", s.ProfileURL(harvest.ProfileReference{URL: "players/y.html"}))
	require.Equal(t, "https://other.example.com/p.html", s.ProfileURL(harvest.ProfileReference{URL: "https://other.example.com/p.html"}))
}

func seasons(snap harvest.PlayerSnapshot) []string {
	out := make([]string, 0, len(snap.Stats))
	for _, rec := range snap.Stats {
		out = append(out, rec.Season)
	}
	return out
}
