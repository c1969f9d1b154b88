package sync

import (
	"toursync/internal/batch"
	"toursync/internal/domain"
)

// Write specs for the six entity categories. Conflict targets are the
// natural keys; surrogate ids are carried as plain columns and never
// rewritten on conflict.
var (
	playersTable = batch.Table{
		Name:    "players",
		Columns: []string{"id", "name"},
		Key:     []string{"name"},
		// No update set: an existing player keeps its id.
	}

	eventsTable = batch.Table{
		Name:    "events",
		Columns: []string{"id", "name", "date", "format", "kind", "rounds", "players"},
		Key:     []string{"id"},
		Update:  []string{"name", "date", "format", "kind", "rounds", "players"},
	}

	standingsTable = batch.Table{
		Name:    "standings",
		Columns: []string{"event_id", "player", "rank", "points", "wins", "losses", "draws", "omwp", "gwp", "ogwp"},
		Key:     []string{"event_id", "player"},
		Update:  []string{"rank", "points", "wins", "losses", "draws", "omwp", "gwp", "ogwp"},
	}

	matchesTable = batch.Table{
		Name:    "matches",
		Columns: []string{"event_id", "round", "player", "opponent", "result", "is_bye", "games"},
		Key:     []string{"event_id", "round", "player"},
		Update:  []string{"opponent", "result", "is_bye", "games"},
	}

	decksTable = batch.Table{
		Name:    "decks",
		Columns: []string{"id", "event_id", "player", "mainboard", "sideboard"},
		Key:     []string{"event_id", "player"},
		Update:  []string{"mainboard", "sideboard"},
	}

	archetypesTable = batch.Table{
		Name:    "archetypes",
		Columns: []string{"id", "deck_id", "name", "archetype", "archetype_id"},
		Key:     []string{"deck_id"},
		Update:  []string{"name", "archetype", "archetype_id"},
	}
)

func playerRows(players []domain.Player) [][]any {
	rows := make([][]any, len(players))
	for i, p := range players {
		rows[i] = []any{p.ID, p.Name}
	}
	return rows
}

func eventRows(events []domain.Event) [][]any {
	rows := make([][]any, len(events))
	for i, e := range events {
		rows[i] = []any{e.ID, e.Name, e.Date, e.Format, e.Kind, e.Rounds, e.Players}
	}
	return rows
}

func standingRows(standings []domain.Standing) [][]any {
	rows := make([][]any, len(standings))
	for i, s := range standings {
		rows[i] = []any{s.EventID, s.Player, s.Rank, s.Points, s.Wins, s.Losses, s.Draws, s.OMWP, s.GWP, s.OGWP}
	}
	return rows
}

func matchRows(matches []domain.Match) [][]any {
	rows := make([][]any, len(matches))
	for i, m := range matches {
		rows[i] = []any{m.EventID, m.Round, m.Player, m.Opponent, m.Result, m.IsBye, m.Games}
	}
	return rows
}

func deckRows(decks []domain.Deck) [][]any {
	rows := make([][]any, len(decks))
	for i, d := range decks {
		rows[i] = []any{d.ID, d.EventID, d.Player, d.Mainboard, d.Sideboard}
	}
	return rows
}

func archetypeRows(archetypes []domain.Archetype) [][]any {
	rows := make([][]any, len(archetypes))
	for i, a := range archetypes {
		rows[i] = []any{a.ID, a.DeckID, a.Name, a.Archetype, a.ArchetypeID}
	}
	return rows
}
