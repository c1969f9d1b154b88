// Package domain defines the tournament entities moved between the
// upstream and local databases.
package domain

import "time"

// Event is the top-level entity. Event ids are assigned upstream and are
// stable across both databases; they are never re-synthesized locally.
type Event struct {
	ID      int64
	Name    string
	Date    time.Time
	Format  string
	Kind    string
	Rounds  int
	Players int
}

// Player maps a display name to a numeric id. The name is the true join
// key across databases; the numeric id is a local convenience and may
// differ between upstream and local for the same name. Ids in the
// negative range are synthesized locally for names with no adoptable
// upstream id.
type Player struct {
	ID   int64
	Name string
}

// Synthetic reports whether the player id was invented locally.
func (p Player) Synthetic() bool {
	return p.ID < 0
}

// Standing is one row of an event's final standings. Unique per
// (event id, player name).
type Standing struct {
	EventID int64
	Player  string
	Rank    int
	Points  int
	Wins    int
	Losses  int
	Draws   int
	OMWP    float64
	GWP     float64
	OGWP    float64
}

// Match is one pairing result. Unique per (event id, round, player name).
type Match struct {
	EventID  int64
	Round    int
	Player   string
	Opponent string
	Result   string
	IsBye    bool
	Games    string
}

// Deck is a player's registered list for an event. The surrogate id comes
// from upstream and is not trusted as a cross-database key; uniqueness is
// by (event id, player name). Mainboard and Sideboard hold the card lists
// as JSON text.
type Deck struct {
	ID        int64
	EventID   int64
	Player    string
	Mainboard string
	Sideboard string
}

// Archetype is the classification attached to a deck. At most one per
// deck; upserts key on DeckID, not on the surrogate id.
type Archetype struct {
	ID          int64
	DeckID      int64
	Name        string
	Archetype   string
	ArchetypeID int64
}
