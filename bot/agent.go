// Package bot is the studai agent: one Telegram bot, one task store, and a
// dialogue machine per chat.
package bot

import (
	"context"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	am "github.com/pancsta/asyncmachine-go/pkg/machine"

	"github.com/pancsta/studai"
	sa "github.com/pancsta/studai/bot/schema"
	"github.com/pancsta/studai/focusmode"
	"github.com/pancsta/studai/session"
	"github.com/pancsta/studai/shared"
	"github.com/pancsta/studai/taskstore"
	"github.com/pancsta/studai/tools/calendar"
	"github.com/pancsta/studai/tools/papers"
	"github.com/pancsta/studai/tools/telegram"
)

var ss = sa.BotStates

var Pass = shared.Pass
var ParseArgs = shared.ParseArgs

// ///// ///// /////

// ///// CONFIG

// ///// ///// /////

type Config struct {
	shared.Config

	Bot ConfigBot
}

type ConfigBot struct {
	// TasksFile is the JSON task list shared with the sweeper.
	TasksFile string
	// FocusFile is the focus-mode flag file.
	FocusFile string
	// NotifyChatId receives sweeper notifications and automation signals.
	NotifyChatId int64
	// DownloadDir keeps uploaded documents.
	DownloadDir string

	// EvalTimeout is the quiz inactivity limit.
	EvalTimeout time.Duration `kdl:",duration"`
	// SessionTTL evicts idle per-chat sessions.
	SessionTTL time.Duration `kdl:",duration"`
	// SearchLimit caps paper results per provider.
	SearchLimit int
	// QuizItems is the number of generated quiz questions.
	QuizItems int

	// CalendarId is the target Google Calendar.
	CalendarId string
	Timezone   string
}

func ConfigDefault() *Config {
	base := shared.ConfigDefault()

	return &Config{
		Config: base,
		Bot: ConfigBot{
			TasksFile:   filepath.Join(base.Agent.Dir, "tasks.json"),
			FocusFile:   filepath.Join(base.Agent.Dir, "focus_mode.json"),
			DownloadDir: filepath.Join(base.Agent.Dir, "uploads"),
			EvalTimeout: 10 * time.Minute,
			SessionTTL:  24 * time.Hour,
			SearchLimit: 5,
			QuizItems:   5,
			CalendarId:  "primary",
			Timezone:    "Asia/Jakarta",
		},
	}
}

// ///// ///// /////

// ///// AGENT

// ///// ///// /////

type Agent struct {
	// inherit from the base Agent
	*studai.Agent

	Config *Config
	Store  *taskstore.Store

	// internals

	reg      *session.Registry
	focus    *focusmode.Flag
	calendar *calendar.Client

	// tools

	tTelegram *telegram.Tool
	tPapers   *papers.Tool
}

// NewBot returns a preconfigured instance of Agent.
func NewBot(ctx context.Context, cfg *Config) (*Agent, error) {
	a := New(ctx, ss.Names(), sa.BotSchema)
	if err := a.Init(cfg); err != nil {
		return nil, err
	}

	return a, nil
}

// New returns a custom instance of Agent.
func New(ctx context.Context, states am.S, schema am.Schema) *Agent {
	return &Agent{
		Agent: studai.NewAgent(ctx, states, schema),
	}
}

func (a *Agent) Init(cfg *Config) error {
	var err error

	// build config
	a.Config = cfg
	baseDefault := shared.ConfigDefault()
	if err := mergo.Merge(&baseDefault, cfg.Config, mergo.WithOverride); err != nil {
		return err
	}

	// call super
	err = a.Agent.Init(a, &baseDefault, shared.LogArgs, sa.BotGroups, sa.BotStates)
	if err != nil {
		return err
	}
	cfg.Config = baseDefault

	// leaves
	a.Store = taskstore.New(cfg.Bot.TasksFile, a.Logger())
	a.focus = focusmode.New(cfg.Bot.FocusFile)
	a.calendar = calendar.New(calendar.Config{
		CalendarId: cfg.Bot.CalendarId,
		Timezone:   cfg.Bot.Timezone,
	})

	// tools
	a.tPapers, err = papers.New(a)
	if err != nil {
		return err
	}
	a.tTelegram, err = telegram.New(a, telegram.Config{
		NotifyChatId: cfg.Bot.NotifyChatId,
		DownloadDir:  cfg.Bot.DownloadDir,
	}, a.onUpdate)
	if err != nil {
		return err
	}

	// per-chat sessions
	a.reg = session.NewRegistry(a, session.Deps{
		UI:          ui{a.tTelegram.Sender},
		Store:       a.Store,
		Focus:       a.focus,
		Calendar:    a.calendar,
		Papers:      a.tPapers,
		Signal:      a.tTelegram.Signal,
		SearchLimit: cfg.Bot.SearchLimit,
		EvalTimeout: cfg.Bot.EvalTimeout,
		QuizItems:   cfg.Bot.QuizItems,
	}, cfg.Bot.SessionTTL)
	a.reg.Start(a.Mach().Ctx())

	return nil
}

// Registry exposes the per-chat sessions.
func (a *Agent) Registry() *session.Registry {
	return a.reg
}

// onUpdate pushes a transport update into the machine queue.
func (a *Agent) onUpdate(u telegram.Update) {
	args := &shared.A{
		ChatId: u.ChatId,
		BtnId:  u.BtnId,
		Doc:    u.Doc,
	}
	if u.Text != "" {
		args.Msg = shared.NewMsg(u.Text, shared.FromUser, u.ChatId)
	}
	a.Mach().Add1(ss.InUpdate, Pass(args))
}

// ui adapts the transport sender to the session package.
type ui struct {
	s *telegram.Sender
}

func (u ui) SendButtons(chatId int64, txt string, btns []session.Btn) error {
	conv := make([]telegram.Btn, len(btns))
	for i, b := range btns {
		conv[i] = telegram.Btn{Id: b.Id, Label: b.Label}
	}

	return u.s.SendButtons(chatId, txt, conv)
}

func (u ui) SendFile(chatId int64, path string) error {
	return u.s.SendFile(chatId, path)
}
