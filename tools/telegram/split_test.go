package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitMessageShort(t *testing.T) {
	out := SplitMessage("hello", MsgLimit)
	assert.Equal(t, []string{"hello"}, out)
}

func TestSplitMessageEmpty(t *testing.T) {
	assert.Nil(t, SplitMessage("", MsgLimit))
}

func TestSplitMessageParagraphs(t *testing.T) {
	txt := strings.Repeat("a", 30) + "\n\n" + strings.Repeat("b", 30)
	out := SplitMessage(txt, 40)

	assert.Len(t, out, 2)
	assert.Equal(t, strings.Repeat("a", 30), out[0])
	assert.Equal(t, strings.Repeat("b", 30), out[1])
}

func TestSplitMessageLines(t *testing.T) {
	// no paragraph break inside the limit, fall back to a line break
	txt := strings.Repeat("a", 30) + "\n" + strings.Repeat("b", 30)
	out := SplitMessage(txt, 40)

	assert.Len(t, out, 2)
	assert.Equal(t, strings.Repeat("a", 30), out[0])
	assert.Equal(t, strings.Repeat("b", 30), out[1])
}

func TestSplitMessageHardCut(t *testing.T) {
	txt := strings.Repeat("a", 100)
	out := SplitMessage(txt, 40)

	assert.Len(t, out, 3)
	for _, chunk := range out {
		assert.LessOrEqual(t, len(chunk), 40)
	}
	assert.Equal(t, txt, strings.Join(out, ""))
}
