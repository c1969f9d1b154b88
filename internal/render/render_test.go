package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"toursync/internal/batch"
	"toursync/internal/sync"
)

func sampleSummary() *sync.Summary {
	return &sync.Summary{
		NewEvents:      2,
		ResyncedEvents: 1,
		Synthesized:    1,
		Stages: []sync.StageResult{
			{Stage: "players", Result: batch.Result{Inserted: 3}},
			{Stage: "events", Result: batch.Result{Inserted: 2}},
			{Stage: "standings", Result: batch.Result{Inserted: 16, Skipped: 1}},
		},
	}
}

func TestSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Summary(&buf, sampleSummary(), FormatTable); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Events: 2 new, 1 resynced",
		"Synthesized player ids: 1",
		"STAGE",
		"players",
		"standings",
		"total",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Summary(&buf, sampleSummary(), FormatJSON); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	var decoded struct {
		NewEvents   int `json:"new_events"`
		Synthesized int `json:"synthesized_player_ids"`
		Stages      []struct {
			Stage    string `json:"stage"`
			Inserted int    `json:"inserted"`
		} `json:"stages"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.NewEvents != 2 || decoded.Synthesized != 1 {
		t.Errorf("unexpected decoded summary: %+v", decoded)
	}
	if len(decoded.Stages) != 3 || decoded.Stages[0].Stage != "players" {
		t.Errorf("unexpected stages: %+v", decoded.Stages)
	}
}

func TestSummaryUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Summary(&buf, sampleSummary(), Format("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
