// Package docs extracts text from uploaded documents and highlights their
// salient sentences with a heuristic relevance score.
package docs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/cixtor/readability"
	html2text "github.com/jaytaylor/html2text"
)

// ErrUnsupported is returned for document formats outside the supported set.
var ErrUnsupported = errors.New("unsupported document format")

// heuristic constants

// ScoreThreshold is the minimum relevance score of a salient sentence.
const ScoreThreshold = 3

// MinSentenceWords filters out sentences too short to be salient.
const MinSentenceWords = 12

// bilingual (id / en) keyword sets

var highKeywords = []string{
	"kesimpulan", "conclusion", "hasil", "result", "penting", "important",
	"utama", "main", "tujuan", "objective", "signifikan", "significant",
	"terbukti", "proves",
}

var mediumKeywords = []string{
	"metode", "method", "data", "analisis", "analysis", "menunjukkan",
	"shows", "pengaruh", "effect", "karena", "because", "oleh karena itu",
	"therefore", "dampak", "impact",
}

// ExtractText reads a .txt, .md, .html or .htm file and returns plain text.
func ExtractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return string(data), nil

	case ".html", ".htm":
		html := string(data)
		reader := readability.New()
		if mini, err := reader.Parse(strings.NewReader(html), ""); err == nil &&
			strings.TrimSpace(mini.Content) != "" {

			html = mini.Content
		}
		txt, err := html2text.FromString(html)
		if err != nil {
			return "", err
		}

		return txt, nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

// Highlight writes a markdown copy of the document with salient sentences
// wrapped in bold markers, and returns its path.
func Highlight(path, lang string) (string, error) {
	txt, err := ExtractText(path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, line := range strings.Split(txt, "\n") {
		if isBoilerplate(line) {
			b.WriteString(line + "\n")
			continue
		}

		for _, sent := range SplitSentences(line) {
			if Score(sent, lang) >= ScoreThreshold {
				b.WriteString("**" + sent + "** ")
			} else {
				b.WriteString(sent + " ")
			}
		}
		b.WriteString("\n")
	}

	ext := filepath.Ext(path)
	out := strings.TrimSuffix(path, ext) + ".highlight.md"
	if err := os.WriteFile(out, []byte(b.String()), 0o644); err != nil {
		return "", err
	}

	return out, nil
}

// Score computes the relevance of a single sentence. Sentences under
// MinSentenceWords always score 0.
func Score(sentence, lang string) int {
	_ = lang // both keyword sets are bilingual
	words := strings.Fields(sentence)
	if len(words) < MinSentenceWords {
		return 0
	}

	lower := strings.ToLower(sentence)
	score := 0
	for _, kw := range highKeywords {
		if strings.Contains(lower, kw) {
			score += 2
		}
	}
	for _, kw := range mediumKeywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}

	// named entities: capitalized words past the first
	for _, w := range words[1:] {
		r := []rune(w)
		if len(r) > 1 && unicode.IsUpper(r[0]) && unicode.IsLower(r[1]) {
			score++
			break
		}
	}

	// numerals
	if strings.ContainsFunc(sentence, unicode.IsDigit) {
		score++
	}

	return score
}

// SplitSentences splits a paragraph on sentence-ending punctuation.
func SplitSentences(txt string) []string {
	var out []string
	var cur strings.Builder

	for _, r := range txt {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}

	return out
}

// isBoilerplate skips headings, list bullets, and short label lines.
func isBoilerplate(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasPrefix(s, "#") || strings.HasPrefix(s, "-") ||
		strings.HasPrefix(s, "*") || strings.HasPrefix(s, "|") {

		return true
	}

	// short lines without sentence punctuation are labels or headings
	return len(strings.Fields(s)) < 4 && !strings.ContainsAny(s, ".!?")
}
