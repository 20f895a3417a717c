package mood

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerhive/internal/domain/post"
)

func writeLexicon(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadLexicon_EmptyPathUsesDefaults(t *testing.T) {
	t.Parallel()

	lex, err := LoadLexicon("")
	require.NoError(t, err)

	assert.Equal(t, defaultStressCues, lex.StressCues())
	assert.Equal(t, defaultOverwhelmCues, lex.OverwhelmCues())
	assert.Len(t, lex.Keywords(), len(defaultStressCues)+len(defaultOverwhelmCues))
}

func TestLoadLexicon_FromYAML(t *testing.T) {
	t.Parallel()

	path := writeLexicon(t, `
stress:
  - "  Exam "
  - midterm
  - exam
overwhelm:
  - burnout
  - midterm
overwhelmWeight: 3
`)

	lex, err := LoadLexicon(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"exam", "midterm"}, lex.StressCues())
	assert.Equal(t, []string{"burnout", "midterm"}, lex.OverwhelmCues())
	assert.Equal(t, []string{"exam", "midterm", "burnout"}, lex.Keywords())

	c := NewClassifier(lex)
	a := c.Analyze("midterm burnout")
	assert.Equal(t, 1.0, a.Scores.Stressed)
	assert.Equal(t, 6.0, a.Scores.Overwhelmed)
	assert.Equal(t, DefaultCalmBaseline, a.Scores.Calm)
	assert.Equal(t, post.ZoneOverwhelmed, a.Zone)

	// the default cues are gone
	assert.Equal(t, post.ZoneCalm, c.Classify("so sad"))
}

func TestLoadLexicon_RejectsBlankCue(t *testing.T) {
	t.Parallel()

	path := writeLexicon(t, "stress:\n  - ok\n  - \"   \"\n")

	_, err := LoadLexicon(path)
	assert.ErrorIs(t, err, ErrEmptyCue)
}

func TestLoadLexicon_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadLexicon(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadLexicon(writeLexicon(t, "stress: [unclosed"))
	assert.Error(t, err)
}

func TestLexicon_AccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	lex := DefaultLexicon()
	cues := lex.StressCues()
	cues[0] = "mutated"

	assert.Equal(t, "frustrating", lex.StressCues()[0])
}
