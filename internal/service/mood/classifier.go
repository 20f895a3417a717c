package mood

import (
	"strings"

	"peerhive/internal/domain/post"
)

// Scores holds the per-zone score of a text
type Scores struct {
	Calm        float64 `json:"Calm"`
	Stressed    float64 `json:"Stressed"`
	Overwhelmed float64 `json:"Overwhelmed"`
}

// Of returns the score of zone z
func (s Scores) Of(z post.Zone) float64 {
	switch z {
	case post.ZoneCalm:
		return s.Calm
	case post.ZoneStressed:
		return s.Stressed
	case post.ZoneOverwhelmed:
		return s.Overwhelmed
	}
	return 0
}

// Analysis is the detailed result of classifying a text
type Analysis struct {
	Zone        post.Zone `json:"zone"`
	Scores      Scores    `json:"scores"`
	MatchedCues []string  `json:"matchedCues"`
}

// Classifier implements keyword-based zone classification
type Classifier struct {
	lexicon *Lexicon
}

var _ post.Classifier = (*Classifier)(nil)

// NewClassifier creates a classifier over lex. A nil lexicon means the default one.
func NewClassifier(lex *Lexicon) *Classifier {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Classifier{lexicon: lex}
}

// Classify returns the zone with the strictly greatest score
func (c *Classifier) Classify(text string) post.Zone {
	return c.Analyze(text).Zone
}

// Analyze scores text against the lexicon. Each distinct cue found in the
// lowercased text contributes its weight once, however often it occurs.
func (c *Classifier) Analyze(text string) Analysis {
	lower := strings.ToLower(text)
	matched := []string{}

	var stressHits, overwhelmHits int
	for _, cue := range c.lexicon.stress {
		if strings.Contains(lower, cue) {
			stressHits++
			matched = append(matched, cue)
		}
	}
	for _, cue := range c.lexicon.overwhelm {
		if strings.Contains(lower, cue) {
			overwhelmHits++
			matched = append(matched, cue)
		}
	}

	scores := Scores{
		Calm:        c.lexicon.calmBaseline,
		Stressed:    float64(stressHits) * c.lexicon.stressWeight,
		Overwhelmed: float64(overwhelmHits) * c.lexicon.overwhelmWeight,
	}

	return Analysis{
		Zone:        pickZone(scores),
		Scores:      scores,
		MatchedCues: matched,
	}
}

// pickZone walks post.Zones in order and keeps the first maximum
func pickZone(s Scores) post.Zone {
	best := post.Zones[0]
	for _, z := range post.Zones[1:] {
		if s.Of(z) > s.Of(best) {
			best = z
		}
	}
	return best
}
