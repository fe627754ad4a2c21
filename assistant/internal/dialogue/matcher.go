package dialogue

import (
	"strings"
	"unicode"
)

// Aliases holds the phrase tables used to interpret free-text replies.
type Aliases struct {
	// Ordinals lists the phrases naming each presented position, in order.
	Ordinals    [][]string `koanf:"ordinals" yaml:"ordinals"`
	Rejections  []string   `koanf:"rejections" yaml:"rejections"`
	Acceptances []string   `koanf:"acceptances" yaml:"acceptances"`
	Declines    []string   `koanf:"declines" yaml:"declines"`
}

// DefaultAliases returns the built-in phrase tables.
func DefaultAliases() Aliases {
	return Aliases{
		Ordinals: [][]string{
			{"first", "1st", "option one", "number one", "option 1", "number 1"},
			{"second", "2nd", "option two", "number two", "option 2", "number 2"},
			{"third", "3rd", "option three", "number three", "option 3", "number 3"},
		},
		Rejections: []string{
			"none", "don't like", "do not like", "another", "other", "others",
			"something else", "neither", "alternatives",
		},
		Acceptances: []string{"yes", "y", "sure", "go ahead", "yeah", "yep", "okay", "ok", "please"},
		Declines:    []string{"no", "nope", "nah", "not now", "nothing", "that's all", "all done", "i'm done", "bye", "goodbye", "stop"},
	}
}

// Matcher interprets user replies with normalised, word-bounded phrase
// matching. Transcription noise in case and punctuation is ignored.
type Matcher struct {
	ordinals    [][]string
	rejections  []string
	acceptances []string
	declines    []string
}

// NewMatcher creates a matcher from the alias tables.
func NewMatcher(a Aliases) *Matcher {
	m := &Matcher{
		rejections:  normalizeAll(a.Rejections),
		acceptances: normalizeAll(a.Acceptances),
		declines:    normalizeAll(a.Declines),
	}
	for _, group := range a.Ordinals {
		m.ordinals = append(m.ordinals, normalizeAll(group))
	}
	return m
}

// Ordinal returns the zero-based position named in text. It reports false
// when no position or more than one position is named.
func (m *Matcher) Ordinal(text string) (int, bool) {
	padded := pad(Normalize(text))
	found := -1
	for pos, group := range m.ordinals {
		if !containsAny(padded, group) {
			continue
		}
		if found >= 0 {
			return 0, false
		}
		found = pos
	}
	return found, found >= 0
}

// Rejects reports whether text asks for other options.
func (m *Matcher) Rejects(text string) bool {
	return containsAny(pad(Normalize(text)), m.rejections)
}

// Declines reports whether text declines to continue.
func (m *Matcher) Declines(text string) bool {
	return containsAny(pad(Normalize(text)), m.declines)
}

// Accepts reports whether text agrees to continue. A decline wins over an
// acceptance in the same reply.
func (m *Matcher) Accepts(text string) bool {
	padded := pad(Normalize(text))
	if containsAny(padded, m.declines) {
		return false
	}
	return containsAny(padded, m.acceptances)
}

// Normalize lower-cases text, drops apostrophes, turns other punctuation
// into spaces and collapses whitespace.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r == '\'' || r == '’' || r == '‘':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func normalizeAll(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func pad(s string) string {
	return " " + s + " "
}

func containsAny(padded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(padded, pad(p)) {
			return true
		}
	}
	return false
}
