package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/instructor-ai/instructor-go/pkg/instructor"
	am "github.com/pancsta/asyncmachine-go/pkg/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pancsta/studai"
	"github.com/pancsta/studai/db"
	"github.com/pancsta/studai/session/schema"
	"github.com/pancsta/studai/shared"
	"github.com/pancsta/studai/taskstore"
	"github.com/pancsta/studai/tools/calendar"
)

// fakeAgent is a minimal AgentAPI for driving sessions without a network.
type fakeAgent struct {
	mach *am.Machine
	cfg  *shared.Config
	out  []*shared.Msg
}

func newFakeAgent(t *testing.T) *fakeAgent {
	t.Helper()
	mach := am.New(context.Background(), am.Schema{"Start": {}}, nil)
	t.Cleanup(mach.Dispose)

	return &fakeAgent{mach: mach, cfg: &shared.Config{}}
}

func (f *fakeAgent) Output(txt string, from shared.From, chatId int64) am.Result {
	f.out = append(f.out, shared.NewMsg(txt, from, chatId))
	return am.Executed
}

func (f *fakeAgent) Mach() *am.Machine                       { return f.mach }
func (f *fakeAgent) SetMach(m *am.Machine)                   { f.mach = m }
func (f *fakeAgent) SetOpenAI(c *instructor.InstructorOpenAI) {}
func (f *fakeAgent) OpenAI() *instructor.InstructorOpenAI    { return nil }
func (f *fakeAgent) Start() am.Result                        { return am.Executed }
func (f *fakeAgent) Stop(ctx context.Context) am.Result      { return am.Executed }
func (f *fakeAgent) Log(txt string, args ...any)             {}
func (f *fakeAgent) Config() *shared.Config                  { return f.cfg }
func (f *fakeAgent) DB() *db.DB                              { return nil }

func (f *fakeAgent) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUI records button and file sends.
type fakeUI struct {
	btns  []Btn
	texts []string
	files []string
}

func (u *fakeUI) SendButtons(chatId int64, txt string, btns []Btn) error {
	u.texts = append(u.texts, txt)
	u.btns = append(u.btns, btns...)
	return nil
}

func (u *fakeUI) SendFile(chatId int64, path string) error {
	u.files = append(u.files, path)
	return nil
}

type fakeFlag struct{ active bool }

func (f *fakeFlag) Active() bool { return f.active }
func (f *fakeFlag) Set(a bool) error {
	f.active = a
	return nil
}

func newTestSession(t *testing.T) (*Session, *fakeAgent, *fakeUI) {
	t.Helper()
	agent := newFakeAgent(t)
	ui := &fakeUI{}
	sess, err := New(agent, 1, Deps{
		UI:     ui,
		Store:  taskstore.New(t.TempDir()+"/tasks.json", agent.Logger()),
		Focus:  &fakeFlag{},
		Signal: func(sig string) error { return nil },
	})
	require.NoError(t, err)
	t.Cleanup(sess.Dispose)

	return sess, agent, ui
}

func msgArgs(txt string) am.A {
	return Pass(&shared.A{Msg: shared.NewMsg(txt, shared.FromUser, 1)})
}

// SCHEMA

func TestFlowStatesAreMutuallyExclusive(t *testing.T) {
	mach := schema.NewSession(context.Background())
	defer mach.Dispose()
	mach.Add1(ss.Start, nil)

	for _, state := range sg.Flow {
		if state == ss.Idle {
			continue
		}
		mach.Add1(state, nil)
		assert.True(t, mach.Is1(state), state)
		assert.False(t, mach.Is1(ss.Idle), "Idle off during "+state)

		// every other flow state is off
		for _, other := range sg.Flow {
			if other == state {
				continue
			}
			assert.False(t, mach.Is1(other), other+" while "+state)
		}
	}
}

func TestIdleIsInitialAndTerminal(t *testing.T) {
	mach := schema.NewSession(context.Background())
	defer mach.Dispose()

	mach.Add1(ss.Start, nil)
	assert.True(t, mach.Is1(ss.Idle))

	mach.Add1(ss.PaperSearching, nil)
	assert.False(t, mach.Is1(ss.Idle))

	mach.Remove1(ss.PaperSearching, nil)
	assert.True(t, mach.Is1(ss.Idle))
}

func TestTickGuardDetectsStaleResults(t *testing.T) {
	mach := schema.NewSession(context.Background())
	defer mach.Dispose()
	mach.Add1(ss.Start, nil)

	mach.Add1(ss.PaperSearching, nil)
	tick := mach.Tick(ss.PaperSearching)

	// the flow moves on before the background result lands
	mach.Remove1(ss.PaperSearching, nil)
	mach.Add1(ss.PaperSearching, nil)

	assert.NotEqual(t, tick, mach.Tick(ss.PaperSearching),
		"a re-entered state must reject results from the previous activation")
}

func TestErrorTagsClearOnTheNextFlow(t *testing.T) {
	mach := schema.NewSession(context.Background())
	defer mach.Dispose()
	mach.Add1(ss.Start, nil)

	// a failed flow drops its state and tags the error
	mach.Add1(ss.PaperSearching, nil)
	mach.Remove1(ss.PaperSearching, nil)
	mach.Add1(ss.ErrTool, nil)

	// the tag sticks through the return to Idle
	assert.True(t, mach.Is1(ss.Idle))
	assert.True(t, mach.Is1(ss.ErrTool))

	// the next dialogue step clears it
	mach.Add1(ss.IntentChecking, nil)
	assert.False(t, mach.Is1(ss.ErrTool))
}

// FLOWS

func TestExplicitPlanFlow(t *testing.T) {
	sess, agent, ui := newTestSession(t)
	mach := sess.Mach

	mach.Add1(ss.TaskTitlePending, nil)
	require.True(t, mach.Is1(ss.TaskTitlePending))

	mach.Add1(ss.Msg, msgArgs("Esai Sejarah"))
	assert.True(t, mach.Is1(ss.TaskDeadlinePending))
	assert.Equal(t, "Esai Sejarah", sess.plan.Title)

	// malformed deadline re-prompts in-state
	mach.Add1(ss.Msg, msgArgs("besok sore"))
	assert.True(t, mach.Is1(ss.TaskDeadlinePending))

	mach.Add1(ss.Msg, msgArgs("2099-01-01 10:00"))
	assert.True(t, mach.Is1(ss.PlanConfirming))
	assert.Equal(t, "2099-01-01 10:00", sess.plan.Deadline)
	assert.Contains(t, ui.btns, Btn{Id: BtnCreatePlan, Label: "✅ Buat rencana"})

	// cancel button acknowledges and lands in Idle
	mach.Add1(ss.BtnPress, Pass(&shared.A{BtnId: BtnCancelPlan}))
	assert.True(t, mach.Is1(ss.Idle))
	assert.NotEmpty(t, agent.out)
}

func TestCancelClearsEveryFlow(t *testing.T) {
	sess, _, _ := newTestSession(t)
	mach := sess.Mach

	for _, state := range []string{ss.TaskTitlePending, ss.TaskDeadlinePending,
		ss.TaskFilePending, ss.StudyTopicPending, ss.ReminderTimePicking} {

		mach.Add1(state, nil)
		require.True(t, mach.Is1(state), state)

		mach.Add1(ss.Cancel, nil)
		assert.True(t, mach.Is1(ss.Idle), "Idle after /cancel from "+state)
		assert.Equal(t, PlanDraft{}, sess.plan)
		assert.Equal(t, ReminderDraft{}, sess.reminder)
	}
}

func TestCancelInIdleIsNoop(t *testing.T) {
	sess, agent, _ := newTestSession(t)

	res := sess.Mach.Add1(ss.Cancel, nil)
	assert.Equal(t, am.Canceled, res)
	assert.Empty(t, agent.out)
}

func TestFocusSurvivesOtherFlows(t *testing.T) {
	sess, _, _ := newTestSession(t)
	mach := sess.Mach

	sess.StartFocus()
	require.True(t, mach.Is1(ss.FocusActive))

	mach.Add1(ss.TaskTitlePending, nil)
	assert.True(t, mach.Is1(ss.FocusActive), "focus is not a dialogue step")

	mach.Add1(ss.Cancel, nil)
	assert.True(t, mach.Is1(ss.FocusActive))

	sess.StopFocus()
	assert.False(t, mach.Is1(ss.FocusActive))
	assert.True(t, mach.Is1(ss.StudyTopicPending))
}

func TestFocusFlagFollowsTheState(t *testing.T) {
	agent := newFakeAgent(t)
	flag := &fakeFlag{}
	sess, err := New(agent, 7, Deps{
		UI:     &fakeUI{},
		Store:  taskstore.New(t.TempDir()+"/tasks.json", agent.Logger()),
		Focus:  flag,
		Signal: func(sig string) error { return nil },
	})
	require.NoError(t, err)
	t.Cleanup(sess.Dispose)

	sess.StartFocus()
	assert.True(t, flag.Active())

	sess.StopFocus()
	assert.False(t, flag.Active())
}

func TestQuizAnswersAdvanceTheIndex(t *testing.T) {
	sess, agent, _ := newTestSession(t)
	mach := sess.Mach

	sess.eval = Evaluation{
		Topic: "jaringan komputer",
		Items: []schema.QuizItem{
			{Number: 1, Kind: "multiple_choice", Question: "Q1",
				Options: []string{"A. TCP", "B. UDP"}, Answer: "A. TCP"},
			{Number: 2, Kind: "multiple_choice", Question: "Q2", Answer: "B"},
		},
	}
	mach.Add1(ss.EvalAnswering, nil)
	require.True(t, mach.Is1(ss.EvalAnswering))
	assert.Contains(t, agent.out[len(agent.out)-1].Text, "Soal 1/2")

	mach.Add1(ss.Msg, msgArgs("A. TCP"))
	assert.Equal(t, 1, sess.eval.Index)
	assert.Contains(t, agent.out[len(agent.out)-1].Text, "Soal 2/2")
	assert.True(t, mach.Is1(ss.EvalAnswering))
}

func TestSessionTimeoutOnlyDuringEval(t *testing.T) {
	sess, _, _ := newTestSession(t)
	mach := sess.Mach

	// rejected outside the quiz flow
	mach.Add1(ss.TaskTitlePending, nil)
	res := mach.Add1(ss.SessionTimeout, nil)
	assert.Equal(t, am.Canceled, res)
	assert.True(t, mach.Is1(ss.TaskTitlePending))

	// forces Idle during the quiz flow
	mach.Add1(ss.StudyTopicPending, nil)
	res = mach.Add1(ss.SessionTimeout, nil)
	assert.Equal(t, am.Executed, res)
	assert.True(t, mach.Is1(ss.Idle))
}

// REGISTRY

func TestRegistryCreatesOnFirstContact(t *testing.T) {
	agent := newFakeAgent(t)
	reg := NewRegistry(agent, Deps{
		UI:     &fakeUI{},
		Store:  taskstore.New(t.TempDir()+"/tasks.json", agent.Logger()),
		Focus:  &fakeFlag{},
		Signal: func(sig string) error { return nil },
	}, time.Hour)

	s1, err := reg.Get(1)
	require.NoError(t, err)
	s2, err := reg.Get(1)
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	_, err = reg.Get(2)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryEvictsIdleSessions(t *testing.T) {
	agent := newFakeAgent(t)
	reg := NewRegistry(agent, Deps{
		UI:     &fakeUI{},
		Store:  taskstore.New(t.TempDir()+"/tasks.json", agent.Logger()),
		Focus:  &fakeFlag{},
		Signal: func(sig string) error { return nil },
	}, time.Hour)

	idle, err := reg.Get(1)
	require.NoError(t, err)
	busy, err := reg.Get(2)
	require.NoError(t, err)
	busy.Mach.Add1(ss.TaskTitlePending, nil)

	reg.EvictNow(time.Now().Add(2 * time.Hour))
	assert.Equal(t, 1, reg.Len())

	// the idle chat gets a fresh session, the busy one keeps its machine
	fresh, err := reg.Get(1)
	require.NoError(t, err)
	assert.NotSame(t, idle, fresh)

	kept, err := reg.Get(2)
	require.NoError(t, err)
	assert.Same(t, busy, kept)
}

func TestReminderSavedWhenCalendarHasNoToken(t *testing.T) {
	t.Setenv(calendar.EnvToken, "")
	agent := newFakeAgent(t)
	store := taskstore.New(t.TempDir()+"/tasks.json", agent.Logger())
	sess, err := New(agent, 1, Deps{
		UI:       &fakeUI{},
		Store:    store,
		Focus:    &fakeFlag{},
		Signal:   func(sig string) error { return nil },
		Calendar: calendar.New(calendar.Config{}),
	})
	require.NoError(t, err)
	t.Cleanup(sess.Dispose)
	mach := sess.Mach

	// a complete draft skips the deadline prompt
	sess.reminder = ReminderDraft{Title: "Ujian", Date: "2099-01-01", Time: "09:00"}
	mach.Add1(ss.ReminderCreating, nil)

	select {
	case <-mach.When1(ss.Idle, nil):
	case <-time.After(3 * time.Second):
		t.Fatal("reminder flow did not finish")
	}

	// no calendar token degrades to a store-only reminder
	tasks := store.List()
	require.Len(t, tasks, 1)
	assert.Equal(t, taskstore.Task{Title: "Ujian", Deadline: "2099-01-01 09:00"},
		tasks[0])
	require.NotEmpty(t, agent.out)
	assert.Contains(t, agent.out[len(agent.out)-1].Text, "Ujian")
}
