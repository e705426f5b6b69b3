package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/ups-ranker/internal/assessment"
)

const structureCSV = `section_id,section_name,skill,weight_in_section,problem_score,correct_answer
S1,SQL Joins,SQL,0.5,100,
S2,Pick primes,Python,,10,"[""2"",""3""]"
S3,Capital,Python,1,5,Paris
`

func testStructure(t *testing.T) assessment.TestStructure {
	t.Helper()
	ts, err := ParseTestStructure(strings.NewReader(structureCSV))
	require.NoError(t, err)
	return ts
}

func TestParseTestStructure(t *testing.T) {
	ts := testStructure(t)
	require.Len(t, ts, 3)

	assert.Equal(t, "S1", ts[0].ID)
	assert.Equal(t, 0.5, ts[0].Weight())
	assert.Nil(t, ts[0].CorrectAnswer)

	assert.Equal(t, 1.0, ts[1].Weight(), "missing weight_in_section defaults to 1")
	assert.Equal(t, []string{"2", "3"}, ts[1].CorrectAnswer)
	assert.Equal(t, []string{"Paris"}, ts[2].CorrectAnswer)
}

func TestParseTestStructureRejectsDuplicates(t *testing.T) {
	_, err := ParseTestStructure(strings.NewReader("section_id,skill\nS1,SQL\ns1,Python\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestWriteTestStructure(t *testing.T) {
	var buf strings.Builder
	err := WriteTestStructure(&buf, assessment.TestStructure{
		{ID: "two-sum", Name: "Two Sum, easy", Skill: "Python", WeightInSection: 0.8},
		{ID: "mcq", Name: "SQL", Skill: "SQL", WeightInSection: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "section_id,section_name,skill,weight_in_section\n"+
		"two-sum,\"Two Sum, easy\",Python,0.8\n"+
		"mcq,SQL,SQL,1\n", buf.String())

	parsed, err := ParseTestStructure(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, "Two Sum, easy", parsed[0].Name)
}

func TestParseJDSettings(t *testing.T) {
	jd, err := ParseJDSettings([]byte("role: Data Analyst\nskill_weights:\n  SQL: 0.6\n  Python: 0.4\n"))
	require.NoError(t, err)
	assert.Equal(t, "Data Analyst", jd.Role)
	assert.Equal(t, 0.6, jd.WeightFor("sql"))

	_, err = ParseJDSettings([]byte("role: x\nskill_weights: {}\n"))
	require.Error(t, err)

	_, err = ParseJDSettings([]byte("skill_weights:\n  SQL: 1.5\n"))
	require.Error(t, err)
}

func TestMarshalJDSettingsRoundTrip(t *testing.T) {
	in := &assessment.JDSettings{Role: "Backend", SkillWeights: map[string]float64{"go": 0.7, "sql": 0.3}}
	data, err := MarshalJDSettings(in)
	require.NoError(t, err)

	out, err := ParseJDSettings(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadRubric(t *testing.T) {
	rubric, err := LoadRubric("")
	require.NoError(t, err)
	assert.Equal(t, assessment.DefaultRubric(), rubric)

	path := filepath.Join(t.TempDir(), "rubric.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  strong_hire_percentile_min: 90\n"), 0o600))

	rubric, err = LoadRubric(path)
	require.NoError(t, err)
	assert.Equal(t, 90.0, rubric.Thresholds.StrongHirePercentileMin)
	assert.Equal(t, 0.4, rubric.Weights.SkillAlignment, "unset keys keep defaults")

	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  strong_hire_percentile_min: 50\n  conditional_percentile_min: 70\n"), 0o600))
	_, err = LoadRubric(path)
	require.Error(t, err)
}

func TestNormalizeRowsFoldsByIdentity(t *testing.T) {
	ts := testStructure(t)
	data := `Candidate ID,Name,Email,Time Taken,Attempts,Plagiarism Score,Proctoring Flags,S1,S2
C1,Alice,alice@example.com,30m 0s,2,0.05,0,80,10
C1,Alice,alice@example.com,1h 5m,1,0.2,3,,
,Bob,bob@example.com,90,1,,,40,abc
,Carol,,,,,,,
,,,,,,,,
`
	core, observed := observer.New(zapcore.WarnLevel)
	candidates, err := ParseCandidates([]byte(data), FormatCSV, ts, zap.New(core))
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	alice := candidates[0]
	assert.Equal(t, "C1", alice.ID)
	assert.Equal(t, 3, alice.Attempts)
	assert.Equal(t, float64(1800+3900), alice.TotalTimeSec)
	assert.Equal(t, assessment.VerdictSevere, alice.ProctoringVerdict)
	require.NotNil(t, alice.PlagiarismScore)
	assert.Equal(t, 0.2, *alice.PlagiarismScore)
	assert.Equal(t, 80.0, alice.Score("s1"))

	bob := candidates[1]
	assert.Equal(t, "bob@example.com", bob.ID)
	assert.Nil(t, bob.PlagiarismScore)
	assert.Equal(t, assessment.VerdictUnknown, bob.ProctoringVerdict)
	_, ok := bob.Sections.Get("s2")
	assert.False(t, ok, "non-numeric score is dropped")

	assert.Equal(t, "CAND001", candidates[2].ID)
	assert.Equal(t, "Carol", candidates[2].Name)

	assert.Equal(t, 1, observed.FilterMessage("ignoring non-numeric section score").Len())
}

func TestParseCandidatesEmpty(t *testing.T) {
	ts := testStructure(t)
	for name, input := range map[string]string{
		"empty csv":       "",
		"header only":     "candidate_id,name\n",
		"malformed json":  "[{",
		"empty json":      "[]",
		"no email in any": `[{"full_name": "Nobody"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCandidates([]byte(input), FormatAuto, ts, nil)
			assert.True(t, errors.Is(err, ErrEmptyCandidates), "got %v", err)
		})
	}
}

func TestParseTimeTaken(t *testing.T) {
	cases := map[string]float64{
		"":        0,
		"90":      90,
		"36m 40s": 2200,
		"1h 5m":   3900,
		"2h":      7200,
		"soon":    0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseTimeTaken(in), in)
	}
}

func TestNormalizePlatform(t *testing.T) {
	ts := testStructure(t)
	data := `[
  {"email": "a@x.io", "full_name": "Ann", "problem_name": "SQL Joins", "run_details": {"score": 70, "testcases_total": 4}, "proctor_verdict": "Negligible"},
  {"email": "a@x.io", "full_name": "Ann", "problem_name": "Pick primes", "mcq_choice": ["3", "2"], "proctor_verdict": "Minor Violations"},
  {"email": "a@x.io", "problem_name": "Capital", "mcq_choice": "Lyon"},
  {"email": "b@x.io", "full_name": "Ben", "problem_name": "Capital", "mcq_choice": "Paris", "run_details": null},
  {"email": 42, "full_name": "Broken"},
  {"full_name": "No email"}
]`
	core, observed := observer.New(zapcore.WarnLevel)
	candidates, err := ParseCandidates([]byte(data), FormatAuto, ts, zap.New(core))
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	ann := candidates[0]
	assert.Equal(t, "a@x.io", ann.ID)
	assert.Equal(t, "Ann", ann.Name)
	assert.Equal(t, 6, ann.Attempts)
	assert.Equal(t, assessment.VerdictMinor, ann.ProctoringVerdict)
	assert.Equal(t, 70.0, ann.Score("s1"))
	assert.Equal(t, 10.0, ann.Score("s2"), "mcq compared as a set")
	v, ok := ann.Sections.Get("s3")
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)

	ben := candidates[1]
	assert.Equal(t, 5.0, ben.Score("s3"))
	assert.Equal(t, assessment.VerdictNegligible, ben.ProctoringVerdict)

	assert.Equal(t, 1, observed.FilterMessage("skipping platform record").Len())
	assert.Equal(t, 1, observed.FilterMessage("skipping platform record without email").Len())
}

func TestNormalizeAnswer(t *testing.T) {
	assert.Equal(t, []string{"3"}, NormalizeAnswer("3"))
	assert.Equal(t, []string{"a", "b"}, NormalizeAnswer(`["a", "b"]`))
	assert.Equal(t, []string{"1", "2"}, NormalizeAnswer([]any{1.0, "2"}))
	assert.Nil(t, NormalizeAnswer(nil))
	assert.Equal(t, []string{"4"}, NormalizeAnswer(4.0))

	assert.True(t, SameAnswers([]string{"b", "a", "a"}, []string{"a", "b"}))
	assert.False(t, SameAnswers([]string{"a"}, []string{"a", "b"}))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatPlatformJSON, DetectFormat("dump.JSON", nil))
	assert.Equal(t, FormatCSV, DetectFormat("c.csv", []byte("[")))
	assert.Equal(t, FormatPlatformJSON, DetectFormat("-", []byte("  [ {}]")))
	assert.Equal(t, FormatCSV, DetectFormat("", []byte("candidate_id,name")))
	assert.Equal(t, FormatCSV, DetectFormat("", []byte(`{"email": "a@example.com"}`)))
}

func TestParseCandidatesKeepsRowsAroundBadQuote(t *testing.T) {
	ts := assessment.TestStructure{{ID: "S1", Name: "Basics", Skill: "python"}}
	data := "candidate_id,name,attempts,S1\nC1,Alice,1,80\nC2,Bo\"b,1,70\nC3,Carol,1,60\n"

	candidates, err := ParseCandidates([]byte(data), FormatCSV, ts, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, "Bo\"b", candidates[1].Name)
	assert.Equal(t, 70.0, candidates[1].Score("s1"))
	assert.Equal(t, 60.0, candidates[2].Score("s1"))
}

func TestReadRowsNormalizesHeaders(t *testing.T) {
	rows, err := ReadRows(strings.NewReader("\uFEFFCandidate ID, Q  1 \nC1,80\n\n"), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]string{"candidate_id": "C1", "q_1": "80"}, rows[0])

	_, err = ReadRows(strings.NewReader(""), nil)
	assert.Error(t, err)
}

func TestSectionIDsWithSpacesMatchHeaders(t *testing.T) {
	assert.Equal(t, "q_1", HeaderKey(" Q 1 "))
	assert.Equal(t, HeaderKey("Q\t1"), HeaderKey("q 1"))

	ts := assessment.TestStructure{{ID: "Q 1", Name: "Warmup", Skill: "python"}}
	candidates, err := ParseCandidates([]byte("candidate_id,Q 1\nC1,80\n"), FormatCSV, ts, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	score, ok := candidates[0].Sections.Get("Q 1")
	assert.True(t, ok)
	assert.Equal(t, 80.0, score)
}
