package assessment

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SectionScores is an insertion-ordered mapping of lower-cased section id to raw score.
// The zero value is ready to use.
type SectionScores struct {
	keys   []string
	values map[string]float64
}

// Set stores the score under the normalized key, keeping the first insertion position.
func (s *SectionScores) Set(id string, score float64) {
	key := NormalizeKey(id)
	if key == "" {
		return
	}
	if s.values == nil {
		s.values = make(map[string]float64)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = score
}

// Get returns the score for a section id, looked up case-insensitively.
func (s SectionScores) Get(id string) (float64, bool) {
	v, ok := s.values[NormalizeKey(id)]
	return v, ok
}

// Keys returns the stored section ids in insertion order.
func (s SectionScores) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

func (s SectionScores) Len() int {
	return len(s.keys)
}

// Clone returns an independent copy.
func (s SectionScores) Clone() SectionScores {
	out := SectionScores{keys: s.Keys(), values: make(map[string]float64, len(s.values))}
	for k, v := range s.values {
		out.values[k] = v
	}
	return out
}

// MarshalJSON encodes the scores as a JSON object in insertion order.
func (s SectionScores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(s.values[key])
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order.
func (s *SectionScores) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("section scores: expected object")
	}
	*s = SectionScores{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("section scores: unexpected key %v", tok)
		}
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("section %s: %w", key, err)
		}
		s.Set(key, v)
	}
	_, err = dec.Token()
	return err
}
