package harvest

import (
	"context"
	"time"
)

// Fetcher retrieves a document by absolute URL. Failures are reported as *TransportError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Node is a queryable fragment of a parsed HTML document.
type Node interface {
	// Find returns every descendant matching the CSS selector, in document order.
	Find(selector string) []Node
	// First returns the first descendant matching the selector.
	First(selector string) (Node, bool)
	// Text returns the combined text content of the node.
	Text() string
	// Attr returns the named attribute of the node.
	Attr(name string) (string, bool)
}

// Parser turns a fetched page into a queryable document root.
type Parser interface {
	Parse(page Page) (Node, error)
}

// Store persists players and their season stats.
type Store interface {
	FindPlayerByName(ctx context.Context, name string) (Player, error)
	FindPlayerByID(ctx context.Context, id int64) (Player, error)
	CreatePlayer(ctx context.Context, p NewPlayer) (Player, error)
	FindSeasonStatsByPlayerID(ctx context.Context, playerID int64) ([]SeasonStats, error)
	CreateSeasonStats(ctx context.Context, playerID int64, stats []SeasonStatRecord) error
	// UpdateSeasonStats writes the row identified by (playerID, Season, Team), inserting it
	// when the season is new.
	UpdateSeasonStats(ctx context.Context, playerID int64, stats SeasonStatRecord) error
	// FindMostRecentSeasonStats returns the season row with the highest identifier.
	FindMostRecentSeasonStats(ctx context.Context) (SeasonStats, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes notifications to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
