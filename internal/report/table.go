package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/spigell/ups-ranker/internal/assessment"
)

// Format selects how Render prints a report.
type Format int

const (
	FormatASCII Format = iota
	FormatMarkdown
	FormatJSON
)

// ParseFormat maps a config value to a Format. Empty input is ASCII.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ascii", "table":
		return FormatASCII, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatASCII, fmt.Errorf("unknown output format %q", s)
	}
}

const insightWidth = 48

// Render returns the executive summary as a table, or the whole report as JSON.
func Render(r *assessment.FullReport, f Format) (string, error) {
	if f == FormatJSON {
		var sb strings.Builder
		if err := WriteJSON(&sb, r); err != nil {
			return "", err
		}
		return sb.String(), nil
	}

	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	if r.Role != "" {
		w.SetTitle(fmt.Sprintf("%s (%s)", r.Role, r.GeneratedAt.Format("2006-01-02 15:04")))
	}

	w.AppendHeader(table.Row{"Rank", "ID", "Name", "Final", "Pctl", "Recommendation", "Skill", "Knowl", "Solve", "Effic", "Integ", "Strengths", "Risks"})
	for _, c := range r.ExecutiveSummary {
		w.AppendRow(table.Row{
			c.Rank,
			c.CandidateID,
			c.Name,
			score(c.FinalScore),
			fmt.Sprintf("%.0f", c.UPSPercentile),
			string(c.Recommendation),
			score(c.SkillAlignment),
			score(c.KnowledgeEvidence),
			score(c.ProblemSolving),
			score(c.EfficiencyConsistency),
			score(c.IntegrityRisk),
			c.KeyStrengths,
			c.KeyRisks,
		})
	}
	w.AppendFooter(table.Row{
		"", fmt.Sprintf("%d candidates", r.Totals.Candidates), "",
		"", "", fmt.Sprintf("%d strong / %d cond.", r.Totals.StrongHires, r.Totals.Conditionals),
	})

	if f == FormatMarkdown {
		return w.RenderMarkdown(), nil
	}

	right := make([]table.ColumnConfig, 0, 9)
	for _, n := range []int{1, 4, 5, 7, 8, 9, 10, 11} {
		right = append(right, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	right = append(right,
		table.ColumnConfig{Number: 12, WidthMax: insightWidth},
		table.ColumnConfig{Number: 13, WidthMax: insightWidth},
	)
	w.SetColumnConfigs(right)

	return w.Render(), nil
}

// Candidate renders a single candidate as a two-column detail table.
func Candidate(c assessment.RankedCandidate) string {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.SetTitle(fmt.Sprintf("#%d %s (%s)", c.Rank, c.Name, c.CandidateID))
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 80}})

	w.AppendRows([]table.Row{
		{"Recommendation", string(c.Recommendation)},
		{"Final score", score(c.FinalScore)},
		{"UPS percentile", fmt.Sprintf("%.1f", c.UPSPercentile)},
		{"Skill alignment", score(c.SkillAlignment)},
		{"Knowledge evidence", score(c.KnowledgeEvidence)},
		{"Problem solving", score(c.ProblemSolving)},
		{"Efficiency / consistency", score(c.EfficiencyConsistency)},
		{"Integrity", score(c.IntegrityRisk)},
		{"Key strengths", c.KeyStrengths},
		{"Key risks", c.KeyRisks},
	})

	if c.Raw != nil {
		w.AppendSeparator()
		w.AppendRow(table.Row{"Attempts", c.Raw.Attempts})
		w.AppendRow(table.Row{"Proctoring", c.Raw.ProctoringVerdict.String()})
		for _, key := range c.Raw.Sections.Keys() {
			v, _ := c.Raw.Sections.Get(key)
			w.AppendRow(table.Row{strings.ToUpper(key), v})
		}
	}
	if c.CV != nil {
		w.AppendSeparator()
		w.AppendRow(table.Row{"Projects / internships", fmt.Sprintf("%d / %d", c.CV.Projects, c.CV.Internships)})
		w.AppendRow(table.Row{"GitHub", c.CV.GitHub})
		w.AppendRow(table.Row{"Keywords", strings.Join(c.CV.Keywords, ", ")})
	}

	return w.Render()
}

func score(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
