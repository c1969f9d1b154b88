package render

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"toursync/internal/sync"
)

// Format represents an output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// Summary writes the end-of-run report in the requested format.
func Summary(w io.Writer, s *sync.Summary, format Format) error {
	switch format {
	case FormatJSON:
		return summaryJSON(w, s)
	case FormatTable, "":
		return summaryTable(w, s)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func summaryTable(w io.Writer, s *sync.Summary) error {
	fmt.Fprintf(w, "Events: %d new, %d resynced\n", s.NewEvents, s.ResyncedEvents)
	if s.Synthesized > 0 {
		fmt.Fprintf(w, "Synthesized player ids: %d\n", s.Synthesized)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tINSERTED\tUPDATED\tSKIPPED")
	for _, st := range s.Stages {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", st.Stage, st.Inserted, st.Updated, st.Skipped)
	}
	total := s.Totals()
	fmt.Fprintf(tw, "total\t%d\t%d\t%d\n", total.Inserted, total.Updated, total.Skipped)
	return tw.Flush()
}

// summaryJSON keeps a stable machine-readable shape for scripting.
func summaryJSON(w io.Writer, s *sync.Summary) error {
	type stage struct {
		Stage    string `json:"stage"`
		Inserted int    `json:"inserted"`
		Updated  int    `json:"updated"`
		Skipped  int    `json:"skipped"`
	}
	out := struct {
		NewEvents      int     `json:"new_events"`
		ResyncedEvents int     `json:"resynced_events"`
		Synthesized    int     `json:"synthesized_player_ids"`
		Stages         []stage `json:"stages"`
	}{
		NewEvents:      s.NewEvents,
		ResyncedEvents: s.ResyncedEvents,
		Synthesized:    s.Synthesized,
	}
	for _, st := range s.Stages {
		out.Stages = append(out.Stages, stage{st.Stage, st.Inserted, st.Updated, st.Skipped})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
