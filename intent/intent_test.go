package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesReminder(t *testing.T) {
	res, ok := Rules("ingatkan aku rapat besok jam 3")
	require.True(t, ok)
	assert.Equal(t, KindReminder, res.Kind)
	assert.Equal(t, "ingatkan aku rapat besok jam 3", res.Details)
}

func TestRulesPlanWinsOverReminder(t *testing.T) {
	// a help term next to an assignment term always means a plan
	texts := []string{
		"saya ada tugas, bantu buatkan rencana",
		"ingatkan aku soal tugas dan bantu kerjakan",
		"I have homework, help me plan it",
		"ada PR matematika, buatkan rencana belajar",
	}
	for _, txt := range texts {
		res, ok := Rules(txt)
		require.True(t, ok, txt)
		assert.Equal(t, KindPlan, res.Kind, txt)
	}
}

func TestRulesReminderAboutAssignment(t *testing.T) {
	// an assignment term alone with a remind wish stays a reminder
	res, ok := Rules("ingatkan aku deadline besok")
	require.True(t, ok)
	assert.Equal(t, KindReminder, res.Kind)
}

func TestRulesGreeting(t *testing.T) {
	res, ok := Rules("halo apa kabar")
	require.True(t, ok)
	assert.Equal(t, KindGreeting, res.Kind)

	// long texts never match greeting
	_, ok = Rules("hi, could you maybe take a look at something else entirely")
	assert.False(t, ok)
}

func TestRulesUndecided(t *testing.T) {
	_, ok := Rules("what is the weather like")
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	assert.Equal(t, KindPlan, Parse("create_task_plan"))
	assert.Equal(t, KindUnknown, Parse("gibberish"))
	assert.Equal(t, KindUnknown, Parse(""))
}
