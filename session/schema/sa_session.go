package schema

import (
	"context"

	am "github.com/pancsta/asyncmachine-go/pkg/machine"
	ssam "github.com/pancsta/asyncmachine-go/pkg/states"

	"github.com/pancsta/studai"
	base "github.com/pancsta/studai/schema"
)

// aliases

type S = am.S
type State = am.State

var SchemaMerge = am.SchemaMerge
var StateAdd = am.StateAdd

// ///// ///// /////

// ///// STATES

// ///// ///// /////

// SessionStatesDef contains all the states of a per-chat Session machine.
type SessionStatesDef struct {
	*am.StatesBase

	ErrLLM   string
	ErrTool  string
	ErrStore string

	// inbound

	// Msg is an inbound text message from this chat.
	Msg string
	// BtnPress is an inline-button callback from this chat.
	BtnPress string
	// DocUpload is a document uploaded to this chat.
	DocUpload string
	// Cancel aborts whatever dialogue step is active, no side effects.
	Cancel string
	// SessionTimeout fires when the quiz dialogue goes quiet for too long.
	SessionTimeout string
	// RequestingLLM is a counted multi state, active while LLM calls
	// are in-flight.
	RequestingLLM string

	// dialogue steps, mutually exclusive

	// Idle means no dialogue step is active. Initial and terminal.
	Idle string
	// IntentChecking classifies free text into an intent.
	IntentChecking string
	// ReminderExtracting pulls a title and deadline out of free text.
	ReminderExtracting string
	// ReminderConfirming waits for the confirm / cancel buttons.
	ReminderConfirming string
	// ReminderTimePicking waits for a clock time, the text had only a date.
	ReminderTimePicking string
	// ReminderCreating normalizes the deadline and writes the calendar
	// event plus the task entry.
	ReminderCreating string
	// TaskFilePending waits for an assignment file upload.
	TaskFilePending string
	// PlanGenerating produces a time-boxed work plan.
	PlanGenerating string
	// TaskTitlePending waits for the task title (explicit plan flow).
	TaskTitlePending string
	// TaskDeadlinePending waits for the task deadline (explicit plan flow).
	TaskDeadlinePending string
	// PlanConfirming waits for the create_plan / cancel_plan buttons.
	PlanConfirming string
	// StudyTopicPending waits for the studied topic after a focus session.
	StudyTopicPending string
	// EvalGenerating produces the summary and quiz for the topic.
	EvalGenerating string
	// EvalAnswering collects quiz answers one index at a time.
	EvalAnswering string
	// EvalScoring grades the collected answers.
	EvalScoring string
	// PaperSearching queries the paper providers.
	PaperSearching string
	// DocSummarizing extracts and summarizes an uploaded document.
	DocSummarizing string

	// FocusActive mirrors the focus-mode flag for this chat. Not a
	// dialogue step, it survives other flows.
	FocusActive string

	// inherit from BasicStatesDef
	*ssam.BasicStatesDef
	// inherit from DisposedStatesDef
	*ssam.DisposedStatesDef
}

// SessionGroupsDef contains all the state groups of the Session machine.
type SessionGroupsDef struct {
	// Flow is the mutual exclusion group of dialogue steps, incl Idle.
	Flow S
	// Err are the per-flow error tags, cleared by the next dialogue step.
	Err S
	// AwaitingInput are the dialogue steps parked on the user.
	AwaitingInput S
	// Eval are the quiz steps covered by the inactivity timeout.
	Eval S
	// Inbound are the multi states carrying user events.
	Inbound S
}

// SessionSchema represents all relations and properties of SessionStates.
var SessionSchema = SchemaMerge(
	// inherit from BasicSchema
	ssam.BasicSchema,
	// inherit from DisposedSchema
	ssam.DisposedSchema,
	am.Schema{

		// errors

		ssS.ErrLLM:   {},
		ssS.ErrTool:  {},
		ssS.ErrStore: {},

		// inbound

		ssS.Msg:       {Multi: true, Require: S{ssS.Start}},
		ssS.BtnPress:  {Multi: true, Require: S{ssS.Start}},
		ssS.DocUpload: {Multi: true, Require: S{ssS.Start}},
		ssS.Cancel:    {Multi: true, Require: S{ssS.Start}},
		ssS.SessionTimeout: {
			Require: S{ssS.Start},
			Remove:  sgS.Eval,
		},
		ssS.RequestingLLM: {Multi: true},

		// dialogue steps

		// err tags survive the return to Idle, the next step clears them
		ssS.Idle: {
			Auto:    true,
			Require: S{ssS.Start},
			Remove:  sgS.Flow,
		},
		ssS.IntentChecking: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
			Tags:    S{base.TagPrompt},
		},
		ssS.ReminderExtracting: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
			Tags:    S{base.TagPrompt},
		},
		ssS.ReminderConfirming: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
		},
		ssS.ReminderTimePicking: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
		},
		ssS.ReminderCreating: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
			Tags:    S{base.TagPrompt},
		},
		ssS.TaskFilePending: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
		},
		ssS.PlanGenerating: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
			Tags:    S{base.TagPrompt},
		},
		ssS.TaskTitlePending: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
		},
		ssS.TaskDeadlinePending: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
		},
		ssS.PlanConfirming: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
		},
		ssS.StudyTopicPending: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
		},
		ssS.EvalGenerating: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
			Tags:    S{base.TagPrompt},
		},
		ssS.EvalAnswering: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
		},
		ssS.EvalScoring: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
			Tags:    S{base.TagPrompt},
		},
		ssS.PaperSearching: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
		},
		ssS.DocSummarizing: {
			Require: S{ssS.Start},
			Remove:  am.SAdd(sgS.Flow, sgS.Err),
			Tags:    S{base.TagPrompt},
		},

		ssS.FocusActive: {Require: S{ssS.Start}},

		// OVERRIDES

		ssS.Ready: StateAdd(ssam.BasicSchema[ssS.Ready], State{
			Auto: true,
		}),
	})

// EXPORTS AND GROUPS

var (
	flow = S{
		ssS.Idle,
		ssS.IntentChecking,
		ssS.ReminderExtracting,
		ssS.ReminderConfirming,
		ssS.ReminderTimePicking,
		ssS.ReminderCreating,
		ssS.TaskFilePending,
		ssS.PlanGenerating,
		ssS.TaskTitlePending,
		ssS.TaskDeadlinePending,
		ssS.PlanConfirming,
		ssS.StudyTopicPending,
		ssS.EvalGenerating,
		ssS.EvalAnswering,
		ssS.EvalScoring,
		ssS.PaperSearching,
		ssS.DocSummarizing,
	}

	ssS = am.NewStates(SessionStatesDef{})
	sgS = am.NewStateGroups(SessionGroupsDef{
		Flow: flow,
		Err:  S{ssS.ErrLLM, ssS.ErrTool, ssS.ErrStore},
		AwaitingInput: S{ssS.ReminderConfirming, ssS.ReminderTimePicking,
			ssS.TaskFilePending, ssS.TaskTitlePending, ssS.TaskDeadlinePending,
			ssS.PlanConfirming, ssS.StudyTopicPending, ssS.EvalAnswering},
		Eval: S{ssS.StudyTopicPending, ssS.EvalGenerating, ssS.EvalAnswering,
			ssS.EvalScoring},
		Inbound: S{ssS.Msg, ssS.BtnPress, ssS.DocUpload, ssS.Cancel},
	})

	// SessionStates contains all the states for the Session machine.
	SessionStates = ssS
	// SessionGroups contains all the state groups for the Session machine.
	SessionGroups = sgS
)

// NewSession will create the most basic Session state machine.
func NewSession(ctx context.Context) *am.Machine {
	return am.New(ctx, SessionSchema, nil)
}

// ///// ///// /////

// ///// PROMPTS

// ///// ///// /////
// Comments are automatically converted to a jsonschema_description tag.

// INTENT

type PromptIntent = studai.Prompt[ParamsIntent, ResultIntent]

func NewPromptIntent(agent studai.AgentAPI) *PromptIntent {
	p := studai.NewPrompt[ParamsIntent, ResultIntent](
		agent, ssS.IntentChecking, `
			- You're an intent router for an academic personal assistant.
			- Users write in Indonesian or English.
		`, `
			1. Classify the text into exactly one intent: create_reminder, find_paper, create_task_plan, greeting, unknown.
			2. When the text mentions an assignment AND asks for a plan or help, always pick create_task_plan, never create_reminder.
			3. When the text only asks to be reminded, pick create_reminder, even if it mentions an assignment.
			4. Extract the slots relevant for the intent and leave the rest empty.
		`, `
			Pick unknown when unsure, never invent an intent outside the list.
		`)

	// routing, no history
	p.HistoryMsgLen = 0
	return p
}

type ParamsIntent struct {
	// The user's message.
	Text string
}

type ResultIntent struct {
	// One of: create_reminder, find_paper, create_task_plan, greeting, unknown.
	Intent string
	// What to be reminded about (create_reminder only).
	Details string
	// Topic of the paper search or the task (find_paper, create_task_plan).
	Topic string
	// Deadline text, verbatim from the message, if any.
	Deadline string
}

// REMINDER EXTRACT

type PromptReminderExtract = studai.Prompt[ParamsReminderExtract, ResultReminderExtract]

func NewPromptReminderExtract(agent studai.AgentAPI) *PromptReminderExtract {
	return studai.NewPrompt[ParamsReminderExtract, ResultReminderExtract](
		agent, ssS.ReminderExtracting, `
			- You're a reminder parser for an academic personal assistant.
			- Users write in Indonesian or English, dates can be relative ("besok", "tomorrow").
		`, `
			1. Extract a short reminder title from the text.
			2. Resolve the date relative to Today into YYYY-MM-DD.
			3. Extract the clock time as HH:MM in 24h format, or leave it empty
			   when the text has no time.
		`, `
			Keep the title in the user's language. Never guess a time that is not in the text.
		`)
}

type ParamsReminderExtract struct {
	// The user's message.
	Text string
	// Today's date as YYYY-MM-DD, for resolving relative dates.
	Today string
}

type ResultReminderExtract struct {
	// Short reminder title.
	Title string
	// Resolved date, YYYY-MM-DD.
	Date string
	// Clock time HH:MM (24h), empty when not present in the text.
	Time string
}

// DEADLINE NORMALIZE

type PromptDeadline = studai.Prompt[ParamsDeadline, ResultDeadline]

func NewPromptDeadline(agent studai.AgentAPI) *PromptDeadline {
	p := studai.NewPrompt[ParamsDeadline, ResultDeadline](
		agent, ssS.ReminderCreating, `
			- You're a datetime normalizer.
		`, `
			1. Combine Date and Time into a single deadline.
			2. Resolve any remaining relative parts against Today.
		`, `
			Output strictly YYYY-MM-DD HH:MM, 24h clock, zero-padded.
		`)

	p.HistoryMsgLen = 0
	return p
}

type ParamsDeadline struct {
	// Date part, possibly relative.
	Date string
	// Time part, free text ("jam 3 sore", "15:00").
	Time string
	// Today's date as YYYY-MM-DD.
	Today string
}

type ResultDeadline struct {
	// Normalized deadline, YYYY-MM-DD HH:MM.
	Deadline string
}

// PLAN

type PromptPlan = studai.Prompt[ParamsPlan, ResultPlan]

func NewPromptPlan(agent studai.AgentAPI) *PromptPlan {
	return studai.NewPrompt[ParamsPlan, ResultPlan](
		agent, ssS.PlanGenerating, `
			- You're a study planner for a university student.
		`, `
			1. Split the work into concrete, time-boxed steps between Today and the Deadline.
			2. Use the assignment material, when given, to name the steps.
			3. Keep each step one line, with a date and an estimated duration.
		`, `
			Answer in the language of the task title. Max 10 steps.
		`)
}

type ParamsPlan struct {
	// Task title.
	Title string
	// Deadline, YYYY-MM-DD HH:MM.
	Deadline string
	// Today's date as YYYY-MM-DD.
	Today string
	// Extracted assignment text, optional.
	Material string
}

type ResultPlan struct {
	// The rendered plan, one step per line.
	Plan string
}

// SUMMARIZE

type PromptSummarize = studai.Prompt[ParamsSummarize, ResultSummarize]

func NewPromptSummarize(agent studai.AgentAPI) *PromptSummarize {
	return studai.NewPrompt[ParamsSummarize, ResultSummarize](
		agent, ssS.DocSummarizing, `
			- You're an academic text summarizer.
		`, `
			1. Summarize the document in the requested language.
			2. Keep the terminology of the source.
		`, `
			Max 10 sentences, plain text.
		`)
}

type ParamsSummarize struct {
	// Extracted document text.
	Text string
	// Target language ("id" or "en").
	Language string
}

type ResultSummarize struct {
	Summary string
}

// EVALUATION

type PromptEval = studai.Prompt[ParamsEval, ResultEval]

func NewPromptEval(agent studai.AgentAPI) *PromptEval {
	return studai.NewPrompt[ParamsEval, ResultEval](
		agent, ssS.EvalGenerating, `
			- You're a university teaching assistant preparing a short knowledge check.
		`, `
			1. Write a few summary points about the topic.
			2. Generate the requested amount of quiz items, mixing multiple_choice and essay kinds.
			3. Number the items from 1 and include a reference answer per item.
		`, `
			Use the language of the topic. Options only for multiple_choice items.
		`)
}

type ParamsEval struct {
	// The studied topic.
	Topic string
	// Number of quiz items.
	Amount int
}

type QuizItem struct {
	// 1-based item number.
	Number int
	// Either multiple_choice or essay.
	Kind string
	Question string
	// Choices, multiple_choice only.
	Options []string
	// Reference answer used for grading.
	Answer string
}

type ResultEval struct {
	Topic string
	// Summary points, one sentence each.
	Summary []string
	Items   []QuizItem
}

// ESSAY SCORE

type PromptScore = studai.Prompt[ParamsScore, ResultScore]

func NewPromptScore(agent studai.AgentAPI) *PromptScore {
	p := studai.NewPrompt[ParamsScore, ResultScore](
		agent, ssS.EvalScoring, `
			- You're grading a student's answer against a reference answer.
		`, `
			1. Compare the student's answer to the reference.
			2. Score from 1 (no overlap) to 100 (complete).
			3. Give one sentence of feedback in the student's language.
		`, `
			Score is an integer between 1 and 100.
		`)

	p.HistoryMsgLen = 0
	return p
}

type ParamsScore struct {
	Question  string
	Reference string
	// The student's answer.
	Answer string
}

type ResultScore struct {
	// 1-100.
	Score    int
	Feedback string
}
