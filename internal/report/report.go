package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/ups-ranker/internal/assessment"
)

// Assembler builds a FullReport. Clock and ID are injectable for tests.
type Assembler struct {
	Clock func() time.Time
	ID    func() string
}

func NewAssembler() *Assembler {
	return &Assembler{
		Clock: func() time.Time { return time.Now().UTC() },
		ID:    func() string { return uuid.NewString() },
	}
}

// Assemble wraps the ranked candidates in a report with totals. Candidate order is kept.
func (a *Assembler) Assemble(role string, ranked []assessment.RankedCandidate) *assessment.FullReport {
	clock, id := a.Clock, a.ID
	if clock == nil {
		clock = time.Now
	}
	if id == nil {
		id = uuid.NewString
	}

	summary := slices.Clone(ranked)
	if summary == nil {
		summary = []assessment.RankedCandidate{}
	}

	return &assessment.FullReport{
		ID:               id(),
		GeneratedAt:      clock(),
		Role:             role,
		Totals:           Totals(summary),
		ExecutiveSummary: summary,
	}
}

// Totals counts candidates per recommendation.
func Totals(ranked []assessment.RankedCandidate) assessment.Totals {
	t := assessment.Totals{Candidates: len(ranked)}
	for _, c := range ranked {
		switch c.Recommendation {
		case assessment.StrongHire:
			t.StrongHires++
		case assessment.Conditional:
			t.Conditionals++
		}
	}
	return t
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *assessment.FullReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteFile writes the report JSON to path.
func WriteFile(path string, r *assessment.FullReport) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, r)
}

// DumpToTmpFile writes the report JSON to a new temporary file and returns its name.
func DumpToTmpFile(r *assessment.FullReport) (string, error) {
	file, err := os.CreateTemp("", "ups_report_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := WriteJSON(file, r); err != nil {
		return "", err
	}
	return file.Name(), nil
}
