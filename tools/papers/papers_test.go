package papers

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeDedupesByFirstLine(t *testing.T) {
	scholar := []string{
		"Attention Is All You Need\n👤 Vaswani dkk.\n🔗 https://s2/1",
		"BERT\n👤 Devlin dkk.\n🔗 https://s2/2",
	}
	arxiv := []string{
		"Attention Is All You Need\n👤 Vaswani dkk.\n🔗 https://arxiv/1",
		"GPT-3\n👤 Brown dkk.\n🔗 https://arxiv/2",
	}

	got := Merge(scholar, arxiv)
	assert.Len(t, got, 3)
	// first provider wins on dup titles
	assert.Contains(t, got[0], "https://s2/1")
}

func TestMergeDropsFailures(t *testing.T) {
	got := Merge(
		[]string{"⚠️ provider unreachable"},
		[]string{"A Paper\n🔗 https://x"},
	)
	assert.Equal(t, []string{"A Paper\n🔗 https://x"}, got)
}

func TestMergeSkipsEmpty(t *testing.T) {
	got := Merge([]string{"", "\nno title"}, nil)
	assert.Empty(t, got)
}

func TestFormatAuthors(t *testing.T) {
	assert.Equal(t, "", formatAuthors(nil))
	assert.Equal(t, "A, B", formatAuthors([]string{"A", "B"}))
	assert.Equal(t, "A, B, C dkk.", formatAuthors([]string{"A", "B", "C", "D"}))
}

func TestFormatEntryTitleFirst(t *testing.T) {
	e := formatEntry(" Some Title \n", "A, B", "https://x",
		strings.Repeat("word ", 50))

	first, rest, _ := strings.Cut(e, "\n")
	assert.Equal(t, "Some Title", first)
	assert.Contains(t, rest, "👤 A, B")
	// long abstracts get truncated
	assert.Contains(t, rest, "…")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 150))
	long := strings.Repeat("a", 200)
	assert.Len(t, []rune(truncate(long, 150)), 151)
}

func TestCombinePartialFailure(t *testing.T) {
	got, err := combine(
		[][]string{{"A Paper\n🔗 https://x"}, nil},
		[]error{nil, errors.New("HTTP 503")},
		[]string{"semantic-scholar", "arxiv"},
	)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, strings.HasPrefix(got[1], "⚠️"))
	assert.Contains(t, got[1], "arxiv")
}

func TestCombineTotalOutage(t *testing.T) {
	got, err := combine(
		[][]string{nil, nil},
		[]error{errors.New("timeout"), errors.New("HTTP 503")},
		[]string{"semantic-scholar", "arxiv"},
	)
	assert.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "all providers failed")
}
