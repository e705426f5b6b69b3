package assessment

import (
	"encoding/json"
	"strings"
)

// Verdict is the proctoring severity label. Values are ordered by severity.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictNegligible
	VerdictMinor
	VerdictSevere
)

var verdictNames = map[Verdict]string{
	VerdictUnknown:    "",
	VerdictNegligible: "Negligible",
	VerdictMinor:      "Minor Violations",
	VerdictSevere:     "Severe Violations",
}

// ParseVerdict maps a free-form verdict label to a Verdict. Unrecognized input is VerdictUnknown.
func ParseVerdict(s string) Verdict {
	switch strings.Join(strings.Fields(strings.ToLower(s)), " ") {
	case "negligible", "none", "clean":
		return VerdictNegligible
	case "minor violations", "minor violation", "minor":
		return VerdictMinor
	case "severe violations", "severe violation", "severe":
		return VerdictSevere
	default:
		return VerdictUnknown
	}
}

// VerdictFromFlags derives a verdict from a raw proctoring flag count.
func VerdictFromFlags(flags int) Verdict {
	switch {
	case flags <= 0:
		return VerdictNegligible
	case flags <= 2:
		return VerdictMinor
	default:
		return VerdictSevere
	}
}

// MoreSevere returns the more severe of two verdicts.
func MoreSevere(a, b Verdict) Verdict {
	if b > a {
		return b
	}
	return a
}

func (v Verdict) String() string {
	return verdictNames[v]
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = ParseVerdict(s)
	return nil
}

// Recommendation is the tri-state hire label.
type Recommendation string

const (
	StrongHire     Recommendation = "Strong Hire"
	Conditional    Recommendation = "Conditional"
	NotRecommended Recommendation = "Not Recommended"
)
