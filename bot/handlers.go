package bot

import (
	"fmt"
	"strings"

	am "github.com/pancsta/asyncmachine-go/pkg/machine"

	"github.com/pancsta/studai/session"
	sessschema "github.com/pancsta/studai/session/schema"
	"github.com/pancsta/studai/shared"
)

var ssS = sessschema.SessionStates

const greeting = `Halo! 👋 Aku asisten belajarmu. Yang bisa kubantu:
• /remind <teks> - bikin pengingat dan acara kalender
• /focus_start dan /focus_stop - mode fokus plus kuis singkat
• /paper <kata kunci> - cari paper akademik
• /tasks - daftar tugas yang belum lewat
• /cancel - batalkan langkah yang sedang jalan
Atau tulis saja maumu dengan bahasa biasa.`

// ///// ///// /////

// ///// HANDLERS

// ///// ///// /////

func (a *Agent) InUpdateEnter(e *am.Event) bool {
	args := ParseArgs(e.Args)
	return args.Msg != nil || args.BtnId != "" || args.Doc != nil
}

// InUpdateState routes a transport update to its chat's session machine.
// Commands short-circuit the classifier.
func (a *Agent) InUpdateState(e *am.Event) {
	args := ParseArgs(e.Args)
	chatId := args.ChatId

	sess, err := a.reg.Get(chatId)
	if err != nil {
		a.Mach().EvAddErr(e, err, nil)
		return
	}

	// record the user's turn in the conversation log
	if args.Msg != nil {
		a.Mach().EvAdd1(e, ss.Prompt, Pass(&shared.A{
			Prompt: args.Msg.Text,
			ChatId: chatId,
		}))
	}

	switch {
	case args.BtnId != "":
		sess.Mach.Add1(ssS.BtnPress, Pass(&shared.A{BtnId: args.BtnId}))

	case args.Doc != nil:
		sess.Mach.Add1(ssS.DocUpload, Pass(&shared.A{Doc: args.Doc}))

	case strings.HasPrefix(args.Msg.Text, "/"):
		a.command(sess, chatId, args.Msg.Text)

	default:
		sess.Mach.Add1(ssS.Msg, Pass(&shared.A{Msg: args.Msg}))
	}
}

// command handles the explicit chat command surface.
func (a *Agent) command(sess *session.Session, chatId int64, txt string) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(txt), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/start":
		a.Output(greeting, shared.FromAssistant, chatId)

	case "/remind":
		if rest == "" {
			a.Output("Mau diingatkan soal apa? Contoh: /remind ujian besok jam 9.",
				shared.FromAssistant, chatId)
			return
		}
		sess.Mach.Add1(ssS.ReminderExtracting, Pass(&shared.A{Prompt: rest}))

	case "/focus_start":
		sess.StartFocus()

	case "/focus_stop":
		sess.StopFocus()

	case "/paper":
		if rest == "" {
			a.Output("Cari paper soal apa? Contoh: /paper transformer models.",
				shared.FromAssistant, chatId)
			return
		}
		sess.Mach.Add1(ssS.PaperSearching, Pass(&shared.A{Prompt: rest}))

	case "/tasks":
		a.listTasks(chatId)

	case "/cancel":
		sess.Mach.Add1(ssS.Cancel, nil)

	default:
		a.Output("Perintah itu aku nggak kenal. Coba /start buat lihat daftarnya.",
			shared.FromAssistant, chatId)
	}
}

// listTasks prints the pending task list.
func (a *Agent) listTasks(chatId int64) {
	tasks := a.Store.List()
	if len(tasks) == 0 {
		a.Output("Daftar tugasmu kosong. 🎉", shared.FromAssistant, chatId)
		return
	}

	out := "Tugas yang tercatat:"
	for _, t := range tasks {
		out += fmt.Sprintf("\n• %s (%s)", t.Title, t.Deadline)
	}
	a.Output(out, shared.FromAssistant, chatId)
}

// MsgState forwards outbound messages to the transport.
func (a *Agent) MsgState(e *am.Event) {
	a.Agent.MsgState(e)
	msg := ParseArgs(e.Args).Msg
	// the user's own words only go to the log
	if msg.ChatId == 0 || msg.From == shared.FromUser {
		return
	}

	ctx := a.Mach().NewStateCtx(ss.Start)

	// unblock
	go func() {
		if ctx.Err() != nil {
			return // expired
		}
		if err := a.tTelegram.Send(msg.ChatId, msg.Text); err != nil {
			a.Logger().Error("telegram send", "err", err, "chat_id", msg.ChatId)
		}
	}()
}

func (a *Agent) ExceptionState(e *am.Event) {
	a.ExceptionHandler.ExceptionState(e)
	args := am.ParseArgs(e.Args)

	// the per-update boundary, the process keeps serving other chats
	a.Logger().Error("bot exception", "err", args.Err)
}
