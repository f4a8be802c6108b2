// Package profile scrapes a player's profile page into a PlayerSnapshot.
package profile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/hoops-harvester/internal/extract"
	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

const (
	imageSelector = ".media-item img"
	rowSelector   = "#all_per_game tbody tr"
)

// Scraper fetches and parses profile pages.
type Scraper struct {
	fetcher harvest.Fetcher
	parser  harvest.Parser
	baseURL string
	logger  *zap.Logger
}

// NewScraper constructs a Scraper resolving profile references against baseURL.
func NewScraper(fetcher harvest.Fetcher, parser harvest.Parser, baseURL string, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		fetcher: fetcher,
		parser:  parser,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("profile"),
	}
}

// ProfileURL resolves ref to an absolute URL.
func (s *Scraper) ProfileURL(ref harvest.ProfileReference) string {
	if strings.HasPrefix(ref.URL, "http://") || strings.HasPrefix(ref.URL, "https://") {
		return ref.URL
	}
	return s.baseURL + "/" + strings.TrimLeft(ref.URL, "/")
}

// Scrape returns the player's season history. Rows without a team are dropped. When no
// row survives the result is harvest.ErrEmptyProfile.
func (s *Scraper) Scrape(ctx context.Context, ref harvest.ProfileReference) (harvest.PlayerSnapshot, error) {
	url := s.ProfileURL(ref)
	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return harvest.PlayerSnapshot{}, err
	}
	root, err := s.parser.Parse(page)
	if err != nil {
		return harvest.PlayerSnapshot{}, fmt.Errorf("parse profile %s: %w", url, err)
	}

	snap := harvest.PlayerSnapshot{ImageURL: imageURL(root)}
	rows := root.Find(rowSelector)
	for _, row := range rows {
		if extract.Text(row, extract.TagData, "team_id") == "" {
			continue
		}
		rec, err := harvest.NewSeasonStatRecord(recordFromRow(row))
		if err != nil {
			continue
		}
		snap.Stats = append(snap.Stats, rec)
		snap.Age = extract.IntCell(row, "age")
		snap.Position = rec.Position
		snap.CurrentTeam = rec.Team
	}

	if len(snap.Stats) == 0 {
		s.logger.Warn("profile has no season rows",
			zap.String("player", ref.Name),
			zap.String("url", url),
			zap.Int("rows", len(rows)),
		)
		return harvest.PlayerSnapshot{}, fmt.Errorf("scrape %s: %w", ref.Name, harvest.ErrEmptyProfile)
	}
	s.logger.Debug("profile scraped",
		zap.String("player", ref.Name),
		zap.Int("seasons", len(snap.Stats)),
	)
	return snap, nil
}

func imageURL(root harvest.Node) string {
	img, ok := root.First(imageSelector)
	if !ok {
		return ""
	}
	src, _ := img.Attr("src")
	return strings.TrimSpace(src)
}

func recordFromRow(row harvest.Node) harvest.SeasonStatRecord {
	f := func(column string) float64 { return extract.FloatCell(row, column) }
	return harvest.SeasonStatRecord{
		Season:   extract.Text(row, extract.TagHeader, "season"),
		Position: extract.Text(row, extract.TagData, "pos"),
		Team:     extract.Text(row, extract.TagData, "team_id"),

		GamesPlayed:  extract.IntCell(row, "g"),
		GamesStarted: extract.IntCell(row, "gs"),

		MinutesPlayed:               f("mp_per_g"),
		FieldGoals:                  f("fg_per_g"),
		FieldGoalAttempts:           f("fga_per_g"),
		FieldGoalPct:                f("fg_pct"),
		ThreePointFieldGoals:        f("fg3_per_g"),
		ThreePointFieldGoalAttempts: f("fg3a_per_g"),
		ThreePointFieldGoalPct:      f("fg3_pct"),
		TwoPointFieldGoals:          f("fg2_per_g"),
		TwoPointFieldGoalAttempts:   f("fg2a_per_g"),
		TwoPointFieldGoalPct:        f("fg2_pct"),
		EffectiveFieldGoalPct:       f("efg_pct"),
		FreeThrows:                  f("ft_per_g"),
		FreeThrowAttempts:           f("fta_per_g"),
		FreeThrowPct:                f("ft_pct"),
		OffensiveRebounds:           f("orb_per_g"),
		DefensiveRebounds:           f("drb_per_g"),
		TotalRebounds:               f("trb_per_g"),
		Assists:                     f("ast_per_g"),
		Steals:                      f("stl_per_g"),
		Blocks:                      f("blk_per_g"),
		Turnovers:                   f("tov_per_g"),
		Fouls:                       f("pf_per_g"),
		Points:                      f("pts_per_g"),
	}
}
