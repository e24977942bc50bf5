package docs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salient = "Kesimpulan dari penelitian ini menunjukkan hasil yang signifikan " +
	"terhadap 120 responden di Jakarta pada tahun 2024."

const filler = "Ini adalah kalimat biasa saja tanpa kata kunci apapun di dalam " +
	"paragraf yang cukup panjang ini."

func TestExtractTextPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	txt, err := ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", txt)
}

func TestExtractTextHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.html")
	html := "<html><body><article><p>first para</p><p>second para</p>" +
		"</article></body></html>"
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	txt, err := ExtractText(path)
	require.NoError(t, err)
	assert.Contains(t, txt, "first para")
	assert.Contains(t, txt, "second para")
	assert.NotContains(t, txt, "<p>")
}

func TestExtractTextUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	_, err := ExtractText(path)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestScore(t *testing.T) {
	// high keyword x2 (kesimpulan, hasil, signifikan...), entity, numeral
	assert.GreaterOrEqual(t, Score(salient, "id"), ScoreThreshold)

	// no keywords
	assert.Less(t, Score(filler, "id"), ScoreThreshold)

	// short sentences never score
	assert.Equal(t, 0, Score("Kesimpulan penting: hasil signifikan.", "id"))
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("One sentence here. Another one! A third? trailing")
	assert.Equal(t, []string{
		"One sentence here.", "Another one!", "A third?", "trailing",
	}, got)
}

func TestIsBoilerplate(t *testing.T) {
	assert.True(t, isBoilerplate("# Heading"))
	assert.True(t, isBoilerplate("- bullet"))
	assert.True(t, isBoilerplate("Chapter One"))
	assert.False(t, isBoilerplate(filler))
}

func TestHighlight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	content := "# Judul\n" + salient + " " + filler + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	out, err := Highlight(path, "id")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, ".highlight.md"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "**"+salient+"**")
	assert.NotContains(t, string(data), "**"+filler+"**")
	// headings stay untouched
	assert.Contains(t, string(data), "# Judul")
}
