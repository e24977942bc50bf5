// Package telegram is the chat transport: long-polling inbound updates and
// outbound message delivery.
package telegram

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	am "github.com/pancsta/asyncmachine-go/pkg/machine"

	"github.com/pancsta/studai"
	"github.com/pancsta/studai/shared"
	"github.com/pancsta/studai/tools/telegram/schema"
)

var ss = schema.TelegramStates
var id = "telegram"
var title = "Telegram Transport"

// EnvToken holds the Telegram bot token.
const EnvToken = "TELEGRAM_BOT_TOKEN"

// MsgLimit is the Telegram hard limit on message length.
const MsgLimit = 4096

type Config struct {
	// NotifyChatId is the fixed recipient of out-of-band notifications
	// and automation signals.
	NotifyChatId int64
	// DownloadDir keeps uploaded documents.
	DownloadDir string
	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout int
}

// Update is a single normalized inbound event.
type Update struct {
	ChatId     int64
	Text       string
	BtnId      string
	CallbackId string
	Doc        *shared.DocRef
}

// ///// ///// /////

// ///// SENDER

// ///// ///// /////

// Sender is the outbound-only client, also used by the sweeper binary.
type Sender struct {
	cfg Config
	bot *tgbotapi.BotAPI
}

func NewSender(cfg Config) (*Sender, error) {
	token := os.Getenv(EnvToken)
	if token == "" {
		return nil, fmt.Errorf("%s not set", EnvToken)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = 30
	}

	return &Sender{cfg: cfg, bot: bot}, nil
}

// Send delivers text to a chat, split at the message limit.
func (s *Sender) Send(chatId int64, txt string) error {
	for _, chunk := range SplitMessage(txt, MsgLimit) {
		msg := tgbotapi.NewMessage(chatId, chunk)
		if _, err := s.bot.Send(msg); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}

	return nil
}

// Btn is an inline keyboard button.
type Btn struct {
	Id    string
	Label string
}

// SendButtons delivers text with a single row of inline buttons.
func (s *Sender) SendButtons(chatId int64, txt string, btns []Btn) error {
	var row []tgbotapi.InlineKeyboardButton
	for _, b := range btns {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Id))
	}
	msg := tgbotapi.NewMessage(chatId, txt)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}

	return nil
}

// SendFile uploads a local file to a chat.
func (s *Sender) SendFile(chatId int64, path string) error {
	doc := tgbotapi.NewDocument(chatId, tgbotapi.FilePath(path))
	if _, err := s.bot.Send(doc); err != nil {
		return fmt.Errorf("telegram send file: %w", err)
	}

	return nil
}

// Notify sends to the fixed notification recipient. Implements
// [sweeper.Notifier].
func (s *Sender) Notify(txt string) error {
	return s.Send(s.cfg.NotifyChatId, txt)
}

// Signal sends a literal automation signal over the notification channel.
func (s *Sender) Signal(sig string) error {
	return s.Send(s.cfg.NotifyChatId, sig)
}

func (s *Sender) answerCallback(callbackId string) {
	_, _ = s.bot.Request(tgbotapi.NewCallback(callbackId, ""))
}

// download fetches an uploaded document into DownloadDir.
func (s *Sender) download(fileId, name string) (string, error) {
	f, err := s.bot.GetFile(tgbotapi.FileConfig{FileID: fileId})
	if err != nil {
		return "", fmt.Errorf("telegram file: %w", err)
	}

	dir := s.cfg.DownloadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if name == "" {
		name = filepath.Base(f.FilePath)
	}
	path := filepath.Join(dir, name)

	resp, err := http.Get(f.Link(s.bot.Token))
	if err != nil {
		return "", fmt.Errorf("telegram file: %w", err)
	}
	defer resp.Body.Close()

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", err
	}

	return path, nil
}

// SplitMessage splits long texts at the limit, preferring paragraph breaks,
// then line breaks, then a hard cut.
func SplitMessage(txt string, limit int) []string {
	if txt == "" {
		return nil
	}

	var out []string
	for len(txt) > limit {
		cut := strings.LastIndex(txt[:limit], "\n\n")
		if cut <= 0 {
			cut = strings.LastIndex(txt[:limit], "\n")
		}
		if cut <= 0 {
			cut = limit
		}
		out = append(out, strings.TrimRight(txt[:cut], "\n"))
		txt = strings.TrimLeft(txt[cut:], "\n")
	}
	if txt != "" {
		out = append(out, txt)
	}

	return out
}

// ///// ///// /////

// ///// TOOL

// ///// ///// /////

type Tool struct {
	*studai.Tool
	*am.ExceptionHandler

	*Sender

	// onUpdate receives normalized inbound updates.
	onUpdate func(u Update)
}

func New(agent studai.AgentAPI, cfg Config, onUpdate func(u Update)) (*Tool, error) {
	sender, err := NewSender(cfg)
	if err != nil {
		return nil, err
	}
	t := &Tool{
		Sender:   sender,
		onUpdate: onUpdate,
	}
	t.Tool, err = studai.NewTool(agent, id, title, ss.Names(), schema.TelegramSchema)
	if err != nil {
		return nil, err
	}

	// bind handlers
	err = t.Mach().BindHandlers(t)
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Tool) Document() *studai.Document {
	doc := t.Doc.Clone()
	return &doc
}

// HANDLERS

func (t *Tool) StartState(e *am.Event) {
	t.Mach().EvAdd1(e, ss.Ready, nil)
}

func (t *Tool) PollingState(e *am.Event) {
	mach := t.Mach()
	ctx := mach.NewStateCtx(ss.Polling)

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = t.cfg.PollTimeout
	updates := t.bot.GetUpdatesChan(cfg)

	// unblock
	go func() {
		if ctx.Err() != nil {
			return // expired
		}
		defer t.bot.StopReceivingUpdates()

		for {
			select {
			case <-ctx.Done():
				return // expired

			case upd, ok := <-updates:
				if !ok {
					mach.Remove1(ss.Polling, nil)
					return
				}
				if u := t.normalize(upd); u != nil {
					t.onUpdate(*u)
				}
			}
		}
	}()
}

// normalize converts a raw update into an [Update], downloading documents.
func (t *Tool) normalize(upd tgbotapi.Update) *Update {
	// button press
	if cq := upd.CallbackQuery; cq != nil {
		t.answerCallback(cq.ID)
		return &Update{
			ChatId:     cq.Message.Chat.ID,
			BtnId:      cq.Data,
			CallbackId: cq.ID,
		}
	}

	msg := upd.Message
	if msg == nil {
		return nil
	}
	u := &Update{
		ChatId: msg.Chat.ID,
		Text:   msg.Text,
	}

	// document upload
	if msg.Document != nil {
		path, err := t.download(msg.Document.FileID, msg.Document.FileName)
		if err != nil {
			t.Mach().AddErr(err, nil)
			return nil
		}
		u.Doc = &shared.DocRef{
			Path:    path,
			Name:    msg.Document.FileName,
			Caption: msg.Caption,
		}
	}

	return u
}
