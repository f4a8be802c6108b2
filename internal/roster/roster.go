// Package roster builds the deduplicated player index from season listing pages.
package roster

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/hoops-harvester/internal/extract"
	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

const (
	statsTableID  = "per_game_stats"
	completeClass = "full_table"
	playerColumn  = "player"
)

// rowSelector matches complete rows only. Players traded mid-season also get one partial
// row per team, which lack the class.
var rowSelector = extract.ByTableID(statsTableID) + " tbody tr." + completeClass

// Indexer fetches season listings.
type Indexer struct {
	fetcher harvest.Fetcher
	parser  harvest.Parser
	baseURL string
	logger  *zap.Logger
}

// NewIndexer constructs an Indexer reading listings under baseURL.
func NewIndexer(fetcher harvest.Fetcher, parser harvest.Parser, baseURL string, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		fetcher: fetcher,
		parser:  parser,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("roster"),
	}
}

// ListingURL returns the per-game listing for season.
func (i *Indexer) ListingURL(season string) string {
	return fmt.Sprintf("%s/leagues/NBA_%s_per_game.html", i.baseURL, season)
}

// Index fetches one season listing and returns its players in page order. Errors from
// the fetcher are returned unchanged.
func (i *Indexer) Index(ctx context.Context, season string) (harvest.RosterIndex, error) {
	url := i.ListingURL(season)
	page, err := i.fetcher.Fetch(ctx, url)
	if err != nil {
		return harvest.RosterIndex{}, err
	}
	root, err := i.parser.Parse(page)
	if err != nil {
		return harvest.RosterIndex{}, fmt.Errorf("parse listing %s: %w", url, err)
	}

	rows := root.Find(rowSelector)
	refs := make([]harvest.ProfileReference, 0, len(rows))
	for _, row := range rows {
		ref, ok := referenceFromRow(row)
		if !ok {
			continue
		}
		refs = append(refs, ref)
	}
	idx := harvest.NewRosterIndex(refs...)
	i.logger.Info("season indexed",
		zap.String("season", season),
		zap.Int("rows", len(rows)),
		zap.Int("players", idx.Len()),
	)
	return idx, nil
}

func referenceFromRow(row harvest.Node) (harvest.ProfileReference, bool) {
	name := extract.Text(row, extract.TagData, playerColumn)
	if name == "" {
		return harvest.ProfileReference{}, false
	}
	ref := harvest.ProfileReference{Name: name}
	if link, ok := row.First(extract.CellSelector(extract.TagData, playerColumn) + " > a"); ok {
		href, _ := link.Attr("href")
		ref.URL = strings.TrimSpace(href)
	}
	return ref, true
}

// Merge folds next into acc. Names already in acc keep their reference; new names are
// appended in next's order. Neither input is modified.
func Merge(acc, next harvest.RosterIndex) harvest.RosterIndex {
	return acc.With(next.Refs()...)
}

// MergeAll indexes seasons in order and merges them, earliest season in the list winning.
func (i *Indexer) MergeAll(ctx context.Context, seasons []string) (harvest.RosterIndex, error) {
	var acc harvest.RosterIndex
	for _, season := range seasons {
		if err := ctx.Err(); err != nil {
			return harvest.RosterIndex{}, err
		}
		idx, err := i.Index(ctx, season)
		if err != nil {
			return harvest.RosterIndex{}, fmt.Errorf("index season %s: %w", season, err)
		}
		acc = Merge(acc, idx)
	}
	return acc, nil
}
