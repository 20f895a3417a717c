package mood

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon is the fixed set of stress and overwhelm cues with their weights.
// A Lexicon is immutable once built; share it freely between goroutines.
type Lexicon struct {
	stress          []string
	overwhelm       []string
	stressWeight    float64
	overwhelmWeight float64
	calmBaseline    float64
	keywords        []string
}

// LexiconSpec is the YAML shape of a lexicon file
type LexiconSpec struct {
	Stress          []string `yaml:"stress"`
	Overwhelm       []string `yaml:"overwhelm"`
	StressWeight    *float64 `yaml:"stressWeight"`
	OverwhelmWeight *float64 `yaml:"overwhelmWeight"`
	CalmBaseline    *float64 `yaml:"calmBaseline"`
}

// Default weights
const (
	DefaultStressWeight    = 1.0
	DefaultOverwhelmWeight = 1.5
	DefaultCalmBaseline    = 0.5
)

var (
	defaultStressCues = []string{
		"frustrating", "angry", "hate", "stupid", "bug", "useless",
		"wrong", "fucking", "shit", "portal", "deadline",
	}
	defaultOverwhelmCues = []string{
		"sad", "crying", "hopeless", "failed", "anxious", "exhausted",
		"dread", "empty", "lonely", "can't",
	}
)

// ErrEmptyCue is returned when a lexicon contains a blank cue
var ErrEmptyCue = errors.New("lexicon cue is empty")

// DefaultLexicon returns the built-in campus lexicon
func DefaultLexicon() *Lexicon {
	lex, err := NewLexicon(LexiconSpec{
		Stress:    defaultStressCues,
		Overwhelm: defaultOverwhelmCues,
	})
	if err != nil {
		panic(err)
	}
	return lex
}

// NewLexicon builds a lexicon from spec, lowercasing and trimming every cue.
// Unset weights fall back to the defaults.
func NewLexicon(spec LexiconSpec) (*Lexicon, error) {
	stress, err := normalizeCues(spec.Stress)
	if err != nil {
		return nil, fmt.Errorf("stress cues: %w", err)
	}
	overwhelm, err := normalizeCues(spec.Overwhelm)
	if err != nil {
		return nil, fmt.Errorf("overwhelm cues: %w", err)
	}

	lex := &Lexicon{
		stress:          stress,
		overwhelm:       overwhelm,
		stressWeight:    valueOr(spec.StressWeight, DefaultStressWeight),
		overwhelmWeight: valueOr(spec.OverwhelmWeight, DefaultOverwhelmWeight),
		calmBaseline:    valueOr(spec.CalmBaseline, DefaultCalmBaseline),
	}
	lex.keywords = unionCues(stress, overwhelm)

	return lex, nil
}

// LoadLexicon reads a YAML lexicon file. An empty path yields the default lexicon.
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return DefaultLexicon(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}

	var spec LexiconSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}

	return NewLexicon(spec)
}

// StressCues returns a copy of the stress cues in lexicon order
func (l *Lexicon) StressCues() []string { return append([]string(nil), l.stress...) }

// OverwhelmCues returns a copy of the overwhelm cues in lexicon order
func (l *Lexicon) OverwhelmCues() []string { return append([]string(nil), l.overwhelm...) }

// Keywords returns the union of stress then overwhelm cues without duplicates
func (l *Lexicon) Keywords() []string { return append([]string(nil), l.keywords...) }

func normalizeCues(cues []string) ([]string, error) {
	out := make([]string, 0, len(cues))
	seen := make(map[string]struct{}, len(cues))
	for _, c := range cues {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			return nil, ErrEmptyCue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

func unionCues(lists ...[]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, c := range list {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
