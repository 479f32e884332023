// Package filter masks banned words in chat text before it is delivered.
package filter

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Mask replaces every rune of a banned word occurrence.
const Mask = '*'

// ErrNoWordsFile is returned by Load when the banned-words file is missing.
var ErrNoWordsFile = errors.New("banned words file not found")

// Filter transforms chat text before delivery.
type Filter interface {
	Filter(text string) string
}

// Func adapts an ordinary function to the Filter interface.
type Func func(text string) string

func (f Func) Filter(text string) string { return f(text) }

// Nop leaves text untouched.
var Nop Filter = Func(func(text string) string { return text })

// WordFilter matches a fixed banned list case-insensitively using an
// Aho-Corasick automaton built once at construction.
type WordFilter struct {
	matcher *goahocorasick.Machine
	words   []string
}

// New builds a WordFilter from words. Blank and duplicate entries are dropped.
// An empty list produces a filter that returns its input unchanged.
func New(words []string) (*WordFilter, error) {
	cleaned := lo.Uniq(lo.Compact(lo.Map(words, func(w string, _ int) string {
		return strings.TrimSpace(w)
	})))

	patterns := lo.Uniq(lo.Map(cleaned, func(w string, _ int) string {
		return string(lowerRunes([]rune(w)))
	}))
	sort.Strings(patterns)

	f := &WordFilter{words: cleaned}
	if len(patterns) == 0 {
		return f, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(lo.Map(patterns, func(p string, _ int) []rune { return []rune(p) })); err != nil {
		return nil, fmt.Errorf("build banned word matcher: %w", err)
	}
	f.matcher = m
	return f, nil
}

// Load reads one banned word or phrase per line from path.
func Load(path string) (*WordFilter, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoWordsFile, path)
		}
		return nil, fmt.Errorf("open banned words file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read banned words file: %w", err)
	}
	return New(words)
}

// Words returns the banned list in file order.
func (f *WordFilter) Words() []string {
	return append([]string(nil), f.words...)
}

// Filter returns text with every banned occurrence replaced by an equal number
// of Mask runes. Overlapping occurrences are all masked.
func (f *WordFilter) Filter(text string) string {
	if f == nil || f.matcher == nil || text == "" {
		return text
	}

	original := []rune(text)
	terms := f.matcher.MultiPatternSearch(lowerRunes(original), false)
	if len(terms) == 0 {
		return text
	}

	masked := make([]rune, len(original))
	copy(masked, original)
	for _, term := range terms {
		end := term.Pos + len(term.Word)
		if term.Pos < 0 || end > len(masked) {
			continue
		}
		for i := term.Pos; i < end; i++ {
			masked[i] = Mask
		}
	}
	return string(masked)
}

func lowerRunes(in []rune) []rune {
	out := make([]rune, len(in))
	for i, r := range in {
		out[i] = unicode.ToLower(r)
	}
	return out
}
