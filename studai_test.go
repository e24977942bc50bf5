package studai

import (
	"context"
	"testing"

	am "github.com/pancsta/asyncmachine-go/pkg/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pancsta/studai/schema"
	"github.com/pancsta/studai/shared"
)

func newTestAgent(t *testing.T) *Agent {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test")
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg := shared.ConfigDefault()
	cfg.Agent.ID = "studai-test"
	cfg.Agent.Dir = t.TempDir()
	cfg.Log.File = ""

	a := NewAgent(context.Background(), ss.Names(), schema.AgentSchema)
	require.NoError(t, a.Init(a, &cfg, shared.LogArgs, schema.AgentBaseGroups,
		schema.AgentBaseStates))
	t.Cleanup(func() {
		a.Stop(nil)
		a.Mach().Dispose()
	})

	return a
}

func TestPromptRecordsTheUserTurn(t *testing.T) {
	a := newTestAgent(t)
	mach := a.Mach()
	mach.Add1(ss.Start, nil)

	res := mach.Add1(ss.Prompt, Pass(&A{Prompt: "halo", ChatId: 7}))
	require.Equal(t, am.Executed, res)

	assert.Equal(t, "halo", a.UserInput)
	require.NotEmpty(t, a.Msgs)
	last := a.Msgs[len(a.Msgs)-1]
	assert.Equal(t, "halo", last.Text)
	assert.Equal(t, shared.FromUser, last.From)
	assert.Equal(t, int64(7), last.ChatId)
}

func TestPromptRejectsEmptyText(t *testing.T) {
	a := newTestAgent(t)
	a.Mach().Add1(ss.Start, nil)

	res := a.Mach().Add1(ss.Prompt, nil)
	assert.Equal(t, am.Canceled, res)
	assert.Empty(t, a.UserInput)
}

func TestRequestingToolCounts(t *testing.T) {
	a := newTestAgent(t)
	mach := a.Mach()
	mach.Add1(ss.Start, nil)

	mach.Add1(ss.RequestingTool, nil)
	mach.Add1(ss.RequestingTool, nil)
	assert.True(t, mach.Is1(ss.Requesting))

	// the first release leaves the other request in flight
	mach.Remove1(ss.RequestingTool, nil)
	assert.True(t, mach.Is1(ss.Requesting))

	mach.Remove1(ss.RequestingTool, nil)
	assert.False(t, mach.Is1(ss.RequestingTool))
	assert.False(t, mach.Is1(ss.Requesting))
}
