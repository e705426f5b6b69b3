package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/ups-ranker/internal/assessment"
)

// Format is the shape of the candidate source.
type Format int

const (
	FormatAuto Format = iota
	FormatCSV
	FormatPlatformJSON
)

// DetectFormat picks a format from the file extension or, failing that, the first
// non-space byte: a top-level array is platform JSON, anything else is CSV.
func DetectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatPlatformJSON
	case ".csv":
		return FormatCSV
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return FormatPlatformJSON
	}
	return FormatCSV
}

// LoadCandidates reads and normalizes a candidate source file.
func LoadCandidates(path string, ts assessment.TestStructure, logger *zap.Logger) ([]*assessment.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading candidates %q: %w", path, err)
	}
	return ParseCandidates(data, DetectFormat(path, data), ts, logger)
}

// ParseCandidates normalizes raw candidate data of the given format.
// An empty or unparseable source, or one yielding no candidates, returns ErrEmptyCandidates.
func ParseCandidates(data []byte, format Format, ts assessment.TestStructure, logger *zap.Logger) ([]*assessment.Candidate, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if format == FormatAuto {
		format = DetectFormat("", data)
	}

	var candidates []*assessment.Candidate
	switch format {
	case FormatPlatformJSON:
		records, err := ParsePlatformRecords(data, logger)
		if err != nil {
			return nil, err
		}
		candidates = NormalizePlatform(records, ts, logger)
	default:
		rows, err := ReadRows(strings.NewReader(string(data)), logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmptyCandidates, err)
		}
		candidates = NormalizeRows(rows, ts, logger)
	}

	if len(candidates) == 0 {
		return nil, ErrEmptyCandidates
	}
	return candidates, nil
}

type candidateRow struct {
	CandidateID       string   `mapstructure:"candidate_id"`
	Name              string   `mapstructure:"name"`
	Email             string   `mapstructure:"email"`
	TimeTaken         string   `mapstructure:"time_taken"`
	TotalTimeSec      *float64 `mapstructure:"total_time_sec"`
	Attempts          float64  `mapstructure:"attempts"`
	PlagiarismScore   *float64 `mapstructure:"plagiarism_score"`
	ProctoringFlags   *float64 `mapstructure:"proctoring_flags"`
	ProctoringVerdict string   `mapstructure:"proctoring_verdict"`
	Resume            string   `mapstructure:"resume"`
}

// NormalizeRows folds flat CSV-like rows into one candidate per identity.
// Section scores are read only for the section ids of ts.
func NormalizeRows(rows []map[string]string, ts assessment.TestStructure, logger *zap.Logger) []*assessment.Candidate {
	if logger == nil {
		logger = zap.NewNop()
	}

	folder := newFolder()
	synthetic := 0

	for i, row := range rows {
		var cr candidateRow
		if err := decodeRow(row, &cr); err != nil {
			logger.Warn("skipping malformed candidate row", zap.Int("row", i+1), zap.Error(err))
			continue
		}

		id := strings.TrimSpace(cr.CandidateID)
		if id == "" {
			id = strings.TrimSpace(cr.Email)
		}
		if id == "" {
			if strings.TrimSpace(cr.Name) == "" {
				logger.Warn("skipping candidate row without identity", zap.Int("row", i+1))
				continue
			}
			for {
				synthetic++
				id = fmt.Sprintf("CAND%03d", synthetic)
				if !folder.has(id) && !rowsClaim(rows, id) {
					break
				}
			}
		}

		c := folder.get(id, func() *assessment.Candidate {
			return &assessment.Candidate{
				ID:    id,
				Name:  strings.TrimSpace(cr.Name),
				Email: strings.TrimSpace(cr.Email),
			}
		})

		c.Attempts += max(int(cr.Attempts), 0)
		c.TotalTimeSec += rowSeconds(cr)
		if c.Resume == "" {
			c.Resume = strings.TrimSpace(cr.Resume)
		}
		if cr.PlagiarismScore != nil {
			score := *cr.PlagiarismScore
			if c.PlagiarismScore == nil || score > *c.PlagiarismScore {
				c.PlagiarismScore = &score
			}
		}

		verdict := assessment.ParseVerdict(cr.ProctoringVerdict)
		if verdict == assessment.VerdictUnknown && cr.ProctoringFlags != nil {
			verdict = assessment.VerdictFromFlags(int(*cr.ProctoringFlags))
		}
		c.ProctoringVerdict = assessment.MoreSevere(c.ProctoringVerdict, verdict)

		for _, section := range ts {
			raw, ok := row[HeaderKey(section.ID)]
			if !ok || raw == "" {
				continue
			}
			score, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				logger.Warn("ignoring non-numeric section score",
					zap.String("candidate_id", id),
					zap.String("section_id", section.ID),
					zap.String("value", raw),
				)
				continue
			}
			c.Sections.Set(section.Key(), score)
		}
	}

	return folder.list()
}

func rowsClaim(rows []map[string]string, id string) bool {
	for _, row := range rows {
		if strings.EqualFold(strings.TrimSpace(row["candidate_id"]), id) {
			return true
		}
	}
	return false
}

func rowSeconds(cr candidateRow) float64 {
	if cr.TotalTimeSec != nil {
		return max(*cr.TotalTimeSec, 0)
	}
	return ParseTimeTaken(cr.TimeTaken)
}

var (
	hoursRe   = regexp.MustCompile(`(\d+)\s*h`)
	minutesRe = regexp.MustCompile(`(\d+)\s*m`)
	secondsRe = regexp.MustCompile(`(\d+)\s*s`)
)

// ParseTimeTaken converts labels such as "1h 5m", "36m 40s" or "90" to seconds.
// Unparseable input yields 0.
func ParseTimeTaken(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return max(v, 0)
	}

	total := 0
	matched := false
	for unit, re := range map[int]*regexp.Regexp{3600: hoursRe, 60: minutesRe, 1: secondsRe} {
		if m := re.FindStringSubmatch(s); m != nil {
			n, _ := strconv.Atoi(m[1])
			total += n * unit
			matched = true
		}
	}
	if !matched {
		return 0
	}
	return float64(total)
}

// NormalizeAnswer turns a correct answer or a choice into a list of strings.
// Strings holding a JSON array are decoded; any other string is a singleton.
func NormalizeAnswer(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return nil
		}
		var arr []any
		if err := json.Unmarshal([]byte(trimmed), &arr); err == nil {
			return NormalizeAnswer(arr)
		}
		return []string{trimmed}
	case []string:
		out := make([]string, 0, len(val))
		for _, s := range val {
			out = append(out, strings.TrimSpace(s))
		}
		return out
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, strings.TrimSpace(answerString(item)))
		}
		return out
	default:
		return []string{answerString(val)}
	}
}

func answerString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// SameAnswers compares two answer lists as sets.
func SameAnswers(a, b []string) bool {
	return slices.Equal(answerSet(a), answerSet(b))
}

func answerSet(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// folder keeps candidates by id in first-seen order.
type folder struct {
	order []string
	byID  map[string]*assessment.Candidate
}

func newFolder() *folder {
	return &folder{byID: make(map[string]*assessment.Candidate)}
}

func (f *folder) has(id string) bool {
	_, ok := f.byID[id]
	return ok
}

func (f *folder) get(id string, create func() *assessment.Candidate) *assessment.Candidate {
	if c, ok := f.byID[id]; ok {
		return c
	}
	c := create()
	f.byID[id] = c
	f.order = append(f.order, id)
	return c
}

func (f *folder) list() []*assessment.Candidate {
	out := make([]*assessment.Candidate, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.byID[id])
	}
	return out
}
