// Package session drives one chat's multi-step dialogue as a state machine.
package session

import (
	"fmt"
	"log/slog"
	"time"

	am "github.com/pancsta/asyncmachine-go/pkg/machine"
	ssam "github.com/pancsta/asyncmachine-go/pkg/states"

	"github.com/pancsta/studai"
	"github.com/pancsta/studai/session/schema"
	"github.com/pancsta/studai/shared"
	"github.com/pancsta/studai/taskstore"
	"github.com/pancsta/studai/tools/calendar"
	"github.com/pancsta/studai/tools/papers"
)

var ss = schema.SessionStates
var sg = schema.SessionGroups

var Pass = shared.Pass
var ParseArgs = shared.ParseArgs

// button ids

const (
	BtnConfirmReminder = "confirm_reminder"
	BtnCancelReminder  = "cancel_reminder"
	BtnCreatePlan      = "create_plan"
	BtnCancelPlan      = "cancel_plan"
)

// Btn is an inline keyboard button offered to the user.
type Btn struct {
	Id    string
	Label string
}

// UI delivers rich outputs which don't fit the plain message channel.
type UI interface {
	SendButtons(chatId int64, txt string, btns []Btn) error
	SendFile(chatId int64, path string) error
}

// FocusFlag is the persisted focus-mode switch.
type FocusFlag interface {
	Active() bool
	Set(active bool) error
}

// Deps are the shared collaborators injected into every session.
type Deps struct {
	UI       UI
	Store    *taskstore.Store
	Focus    FocusFlag
	Calendar *calendar.Client
	Papers   *papers.Tool
	// Signal notifies the local automation collaborator.
	Signal func(sig string) error

	// SearchLimit caps paper results per provider.
	SearchLimit int
	// EvalTimeout is the quiz inactivity limit.
	EvalTimeout time.Duration
	// QuizItems is the number of generated quiz questions.
	QuizItems int
}

// TYPED FLOW DATA
// Each draft is valid only while its flow states are active.

// ReminderDraft carries the reminder flow between steps.
type ReminderDraft struct {
	Title string
	// Date is the resolved YYYY-MM-DD part.
	Date string
	// Time is either HH:MM from extraction or the user's free-text answer.
	Time string
	// Deadline is the normalized YYYY-MM-DD HH:MM, set by ReminderCreating.
	Deadline string
	// IsAssignment chains the flow into the task-file prompt.
	IsAssignment bool
}

// PlanDraft carries the explicit plan flow between steps.
type PlanDraft struct {
	Title    string
	Deadline string
	// Material is the extracted assignment text, optional.
	Material string
}

// Evaluation is the quiz flow data.
type Evaluation struct {
	Topic   string
	Summary []string
	Items   []schema.QuizItem
	Index   int
	Answers []string
}

// Session is a single chat's dialogue machine.
type Session struct {
	*am.ExceptionHandler
	*ssam.DisposedHandlers

	ChatId int64
	Mach   *am.Machine

	a    studai.AgentAPI
	deps Deps
	log  *slog.Logger

	reminder ReminderDraft
	plan     PlanDraft
	eval     Evaluation

	// prompts
	pIntent    *schema.PromptIntent
	pExtract   *schema.PromptReminderExtract
	pDeadline  *schema.PromptDeadline
	pPlan      *schema.PromptPlan
	pSummarize *schema.PromptSummarize
	pEval      *schema.PromptEval
	pScore     *schema.PromptScore
}

func New(agent studai.AgentAPI, chatId int64, deps Deps) (*Session, error) {
	if deps.SearchLimit == 0 {
		deps.SearchLimit = 5
	}
	if deps.EvalTimeout == 0 {
		deps.EvalTimeout = 10 * time.Minute
	}
	if deps.QuizItems == 0 {
		deps.QuizItems = 5
	}

	s := &Session{
		DisposedHandlers: &ssam.DisposedHandlers{},

		ChatId: chatId,
		a:      agent,
		deps:   deps,
		log:    agent.Logger().With("chat_id", chatId),
	}

	// machine
	id := fmt.Sprintf("session-%d", chatId)
	mach, err := am.NewCommon(agent.Mach().Ctx(), id, schema.SessionSchema,
		ss.Names(), s, agent.Mach(), &am.Opts{Tags: []string{"session"}})
	if err != nil {
		return nil, err
	}
	s.Mach = mach
	shared.MachTelemetry(mach, shared.LogArgs)

	// prompts, per chat for separate histories
	s.pIntent = schema.NewPromptIntent(agent)
	s.pExtract = schema.NewPromptReminderExtract(agent)
	s.pDeadline = schema.NewPromptDeadline(agent)
	s.pPlan = schema.NewPromptPlan(agent)
	s.pSummarize = schema.NewPromptSummarize(agent)
	s.pEval = schema.NewPromptEval(agent)
	s.pScore = schema.NewPromptScore(agent)

	mach.Add1(ss.Start, nil)

	return s, nil
}

// Dispose tears the machine down, used by the registry on eviction.
func (s *Session) Dispose() {
	s.Mach.Dispose()
}

// Idle is true when no dialogue step is active.
func (s *Session) Idle() bool {
	return s.Mach.Is1(ss.Idle)
}

// output sends a plain reply to this chat.
func (s *Session) output(txt string) {
	s.a.Output(txt, shared.FromAssistant, s.ChatId)
}

// today returns the date the LLM resolves relative dates against.
func today() string {
	return time.Now().Format("2006-01-02")
}
