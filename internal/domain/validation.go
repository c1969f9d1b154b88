package domain

import "fmt"

// ValidateEvent checks the fields required before an event row is written.
func ValidateEvent(e Event) error {
	if e.ID <= 0 {
		return fmt.Errorf("invalid event id %d: must be a positive upstream id", e.ID)
	}
	if e.Name == "" {
		return fmt.Errorf("invalid event %d: name is empty", e.ID)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("invalid event %d: date is not set", e.ID)
	}
	return nil
}

// ValidatePlayer checks that a player row carries a usable join key.
func ValidatePlayer(p Player) error {
	if p.Name == "" {
		return fmt.Errorf("invalid player %d: name is empty", p.ID)
	}
	if p.ID == 0 {
		return fmt.Errorf("invalid player %q: id is zero", p.Name)
	}
	return nil
}

// ValidateStanding checks the composite key of a standing row.
func ValidateStanding(s Standing) error {
	if s.EventID == 0 {
		return fmt.Errorf("invalid standing for %q: event id is zero", s.Player)
	}
	if s.Player == "" {
		return fmt.Errorf("invalid standing in event %d: player name is empty", s.EventID)
	}
	return nil
}

// ValidateMatch checks the composite key of a match row.
func ValidateMatch(m Match) error {
	if m.EventID == 0 {
		return fmt.Errorf("invalid match for %q: event id is zero", m.Player)
	}
	if m.Player == "" {
		return fmt.Errorf("invalid match in event %d round %d: player name is empty", m.EventID, m.Round)
	}
	if m.Round <= 0 {
		return fmt.Errorf("invalid match for %q in event %d: round %d", m.Player, m.EventID, m.Round)
	}
	return nil
}
