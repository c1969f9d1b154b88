package sync

import (
	"context"
	"fmt"

	"toursync/internal/db"
	"toursync/internal/domain"
)

// Source reads for each entity category, scoped to the worklist events.

func fetchEvents(ctx context.Context, source *db.DB, ids []int64) ([]domain.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := fmt.Sprintf(`
		SELECT id, name, date, format, kind, rounds, players
		FROM events WHERE id IN (%s)
		ORDER BY date DESC, id DESC
	`, db.Placeholders(len(ids)))

	rows, err := source.QueryContext(ctx, q, db.Int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Date, &e.Format, &e.Kind, &e.Rounds, &e.Players); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func fetchStandings(ctx context.Context, source *db.DB, ids []int64) ([]domain.Standing, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := fmt.Sprintf(`
		SELECT event_id, player, rank, points, wins, losses, draws, omwp, gwp, ogwp
		FROM standings WHERE event_id IN (%s)
		ORDER BY event_id, rank
	`, db.Placeholders(len(ids)))

	rows, err := source.QueryContext(ctx, q, db.Int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source standings: %w", err)
	}
	defer rows.Close()

	var out []domain.Standing
	for rows.Next() {
		var s domain.Standing
		if err := rows.Scan(&s.EventID, &s.Player, &s.Rank, &s.Points, &s.Wins, &s.Losses, &s.Draws, &s.OMWP, &s.GWP, &s.OGWP); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func fetchMatches(ctx context.Context, source *db.DB, ids []int64) ([]domain.Match, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := fmt.Sprintf(`
		SELECT event_id, round, player, opponent, result, is_bye, games
		FROM matches WHERE event_id IN (%s)
		ORDER BY event_id, round, player
	`, db.Placeholders(len(ids)))

	rows, err := source.QueryContext(ctx, q, db.Int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source matches: %w", err)
	}
	defer rows.Close()

	var out []domain.Match
	for rows.Next() {
		var m domain.Match
		if err := rows.Scan(&m.EventID, &m.Round, &m.Player, &m.Opponent, &m.Result, &m.IsBye, &m.Games); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func fetchDecks(ctx context.Context, source *db.DB, ids []int64) ([]domain.Deck, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := fmt.Sprintf(`
		SELECT id, event_id, player, mainboard, sideboard
		FROM decks WHERE event_id IN (%s)
		ORDER BY event_id, id
	`, db.Placeholders(len(ids)))

	rows, err := source.QueryContext(ctx, q, db.Int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source decks: %w", err)
	}
	defer rows.Close()

	var out []domain.Deck
	for rows.Next() {
		var d domain.Deck
		if err := rows.Scan(&d.ID, &d.EventID, &d.Player, &d.Mainboard, &d.Sideboard); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func fetchArchetypes(ctx context.Context, source *db.DB, ids []int64) ([]domain.Archetype, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := fmt.Sprintf(`
		SELECT a.id, a.deck_id, a.name, a.archetype, a.archetype_id
		FROM archetypes a
		JOIN decks d ON d.id = a.deck_id
		WHERE d.event_id IN (%s)
		ORDER BY a.deck_id
	`, db.Placeholders(len(ids)))

	rows, err := source.QueryContext(ctx, q, db.Int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source archetypes: %w", err)
	}
	defer rows.Close()

	var out []domain.Archetype
	for rows.Next() {
		var a domain.Archetype
		if err := rows.Scan(&a.ID, &a.DeckID, &a.Name, &a.Archetype, &a.ArchetypeID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
