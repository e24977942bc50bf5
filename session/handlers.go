package session

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	am "github.com/pancsta/asyncmachine-go/pkg/machine"

	"github.com/pancsta/studai/focusmode"
	"github.com/pancsta/studai/intent"
	baseschema "github.com/pancsta/studai/schema"
	"github.com/pancsta/studai/session/schema"
	"github.com/pancsta/studai/shared"
	"github.com/pancsta/studai/taskstore"
	"github.com/pancsta/studai/tools/calendar"
	"github.com/pancsta/studai/tools/docs"
)

var ssB = baseschema.AgentBaseStates

var matchClock = regexp.MustCompile(`^\d{2}:\d{2}$`)

// requestTool runs a blocking adapter call with the agent machine marked as
// requesting a tool.
func requestTool[T any](s *Session, fn func() (T, error)) (T, error) {
	amach := s.a.Mach()
	if amach.Has1(ssB.RequestingTool) {
		amach.Add1(ssB.RequestingTool, nil)
		defer amach.Remove1(ssB.RequestingTool, nil)
	}

	return fn()
}

// ///// ///// /////

// ///// INBOUND

// ///// ///// /////

func (s *Session) MsgEnter(e *am.Event) bool {
	args := ParseArgs(e.Args)
	return args.Msg != nil && strings.TrimSpace(args.Msg.Text) != ""
}

// MsgState routes an inbound text either to the step waiting for it, or to
// a fresh classification.
func (s *Session) MsgState(e *am.Event) {
	mach := e.Machine()
	msg := ParseArgs(e.Args).Msg
	txt := strings.TrimSpace(msg.Text)

	switch {
	case mach.Is1(ss.ReminderTimePicking):
		s.reminder.Time = txt
		mach.EvAdd1(e, ss.ReminderCreating, nil)

	case mach.Is1(ss.TaskTitlePending):
		s.plan.Title = txt
		mach.EvAdd1(e, ss.TaskDeadlinePending, nil)

	case mach.Is1(ss.TaskDeadlinePending):
		if _, err := time.Parse(taskstore.DeadlineLayout, txt); err != nil {
			// input error, stay and re-prompt
			s.output("Format deadline-nya YYYY-MM-DD HH:MM ya, contoh: 2025-06-01 15:00.")
			return
		}
		s.plan.Deadline = txt
		mach.EvAdd1(e, ss.PlanConfirming, nil)

	case mach.Is1(ss.StudyTopicPending):
		s.eval = Evaluation{Topic: txt}
		mach.EvAdd1(e, ss.EvalGenerating, nil)

	case mach.Is1(ss.EvalAnswering):
		s.collectAnswer(e, txt)

	default:
		// new top-level classification, abandons any pending flow
		mach.EvAdd1(e, ss.IntentChecking, Pass(&shared.A{Msg: msg}))
	}
}

func (s *Session) BtnPressEnter(e *am.Event) bool {
	return ParseArgs(e.Args).BtnId != ""
}

func (s *Session) BtnPressState(e *am.Event) {
	mach := e.Machine()

	switch ParseArgs(e.Args).BtnId {
	case BtnConfirmReminder:
		if mach.Is1(ss.ReminderConfirming) {
			mach.EvAdd1(e, ss.ReminderCreating, nil)
		}

	case BtnCancelReminder:
		if mach.Is1(ss.ReminderConfirming) {
			s.output("Oke, pengingatnya dibatalkan.")
			mach.EvRemove1(e, ss.ReminderConfirming, nil)
		}

	case BtnCreatePlan:
		if mach.Is1(ss.PlanConfirming) {
			mach.EvAdd1(e, ss.PlanGenerating, nil)
		}

	case BtnCancelPlan:
		if mach.Is1(ss.PlanConfirming) {
			s.output("Oke, rencananya dibatalkan.")
			mach.EvRemove1(e, ss.PlanConfirming, nil)
		}
	}
}

func (s *Session) DocUploadEnter(e *am.Event) bool {
	return ParseArgs(e.Args).Doc != nil
}

func (s *Session) DocUploadState(e *am.Event) {
	mach := e.Machine()
	doc := ParseArgs(e.Args).Doc

	if mach.Is1(ss.TaskFilePending) {
		mach.EvAdd1(e, ss.PlanGenerating, Pass(&shared.A{Doc: doc}))
		return
	}
	mach.EvAdd1(e, ss.DocSummarizing, Pass(&shared.A{Doc: doc}))
}

func (s *Session) CancelEnter(e *am.Event) bool {
	return e.Machine().Not1(ss.Idle)
}

// CancelState drops the active dialogue step with no side effects, Idle
// auto-activates right after.
func (s *Session) CancelState(e *am.Event) {
	e.Machine().EvRemove(e, sg.Flow, nil)
	s.reminder = ReminderDraft{}
	s.plan = PlanDraft{}
	s.eval = Evaluation{}
	s.output("Dibatalkan. Ada lagi yang bisa kubantu?")
}

func (s *Session) SessionTimeoutEnter(e *am.Event) bool {
	return e.Machine().Any1(sg.Eval...)
}

func (s *Session) SessionTimeoutState(e *am.Event) {
	mach := e.Machine()
	s.eval = Evaluation{}
	s.output("Sesi kuisnya kututup dulu karena tidak ada jawaban. " +
		"Kabari aku kalau mau lanjut belajar lagi ya.")
	mach.EvRemove1(e, ss.SessionTimeout, nil)
}

// ///// ///// /////

// ///// INTENT

// ///// ///// /////

func (s *Session) IntentCheckingEnter(e *am.Event) bool {
	args := ParseArgs(e.Args)
	return args.Msg != nil && args.Msg.Text != ""
}

func (s *Session) IntentCheckingState(e *am.Event) {
	mach := e.Machine()
	txt := strings.TrimSpace(ParseArgs(e.Args).Msg.Text)

	// deterministic rules first, the LLM only gets the leftovers
	if res, ok := intent.Rules(txt); ok {
		s.route(e, res, txt)
		return
	}

	ctx := mach.NewStateCtx(ss.IntentChecking)
	tick := mach.Tick(ss.IntentChecking)

	// unblock
	go func() {
		if ctx.Err() != nil {
			return // expired
		}
		res, err := s.pIntent.Run(e, schema.ParamsIntent{Text: txt}, "")
		if ctx.Err() != nil || mach.Tick(ss.IntentChecking) != tick {
			return // expired
		}
		if err != nil {
			s.failFlow(e, ss.IntentChecking, ss.ErrLLM, err,
				"Maaf, aku lagi kesulitan memahami pesanmu. Coba lagi sebentar lagi ya.")
			return
		}

		s.route(e, intent.Result{
			Kind:     intent.Parse(res.Intent),
			Details:  res.Details,
			Topic:    res.Topic,
			Deadline: res.Deadline,
		}, txt)
	}()
}

// route dispatches a classified intent to its flow entry state.
func (s *Session) route(e *am.Event, res intent.Result, txt string) {
	mach := e.Machine()

	switch res.Kind {
	case intent.KindReminder:
		details := res.Details
		if details == "" {
			details = txt
		}
		mach.EvAdd1(e, ss.ReminderExtracting, Pass(&shared.A{Prompt: details}))

	case intent.KindPlan:
		s.plan = PlanDraft{}
		if res.Topic != "" && res.Topic != txt {
			s.plan.Title = res.Topic
			mach.EvAdd1(e, ss.TaskDeadlinePending, nil)
		} else {
			mach.EvAdd1(e, ss.TaskTitlePending, nil)
		}

	case intent.KindPaper:
		query := res.Topic
		if query == "" {
			query = txt
		}
		mach.EvAdd1(e, ss.PaperSearching, Pass(&shared.A{Prompt: query}))

	case intent.KindGreeting:
		s.output("Halo! 👋 Aku bisa bantu bikin pengingat, rencana tugas, " +
			"cari paper, atau merangkum dokumen. Mau mulai dari mana?")
		mach.EvRemove1(e, ss.IntentChecking, nil)

	default:
		s.output("Hmm, aku belum paham maksudmu. Coba tulis misalnya " +
			"\"ingatkan aku ujian besok jam 9\" atau kirim /paper machine learning.")
		mach.EvRemove1(e, ss.IntentChecking, nil)
	}
}

// ///// ///// /////

// ///// REMINDER

// ///// ///// /////

func (s *Session) ReminderExtractingEnter(e *am.Event) bool {
	return ParseArgs(e.Args).Prompt != ""
}

func (s *Session) ReminderExtractingState(e *am.Event) {
	mach := e.Machine()
	txt := ParseArgs(e.Args).Prompt
	ctx := mach.NewStateCtx(ss.ReminderExtracting)
	tick := mach.Tick(ss.ReminderExtracting)

	// unblock
	go func() {
		if ctx.Err() != nil {
			return // expired
		}
		res, err := s.pExtract.Run(e, schema.ParamsReminderExtract{
			Text:  txt,
			Today: today(),
		}, "")
		if ctx.Err() != nil || mach.Tick(ss.ReminderExtracting) != tick {
			return // expired
		}
		if err != nil {
			s.failFlow(e, ss.ReminderExtracting, ss.ErrLLM, err,
				"Maaf, aku gagal membaca pengingatnya. Coba tulis ulang ya.")
			return
		}

		s.reminder = ReminderDraft{
			Title:        res.Title,
			Date:         res.Date,
			Time:         res.Time,
			IsAssignment: intent.IsAssignment(txt),
		}
		if res.Time == "" {
			mach.EvAdd1(e, ss.ReminderTimePicking, nil)
		} else {
			mach.EvAdd1(e, ss.ReminderConfirming, nil)
		}
	}()
}

func (s *Session) ReminderTimePickingState(e *am.Event) {
	s.output("Jam berapa? Contoh: 15:00, atau tulis saja \"jam 3 sore\".")
}

func (s *Session) ReminderConfirmingState(e *am.Event) {
	d := s.reminder
	when := d.Date
	if d.Time != "" {
		when += " " + d.Time
	}
	txt := fmt.Sprintf("Kubuatkan pengingat %q untuk %s. Simpan?", d.Title, when)
	err := s.deps.UI.SendButtons(s.ChatId, txt, []Btn{
		{Id: BtnConfirmReminder, Label: "✅ Simpan"},
		{Id: BtnCancelReminder, Label: "❌ Batal"},
	})
	e.Machine().EvAddErr(e, err, nil)
}

// ReminderCreatingState normalizes the deadline, writes the calendar event
// and the task entry, then optionally chains into the task-file prompt.
func (s *Session) ReminderCreatingState(e *am.Event) {
	mach := e.Machine()
	ctx := mach.NewStateCtx(ss.ReminderCreating)
	tick := mach.Tick(ss.ReminderCreating)

	// unblock
	go func() {
		if ctx.Err() != nil {
			return // expired
		}
		d := s.reminder

		deadline := ""
		if matchClock.MatchString(d.Time) {
			deadline = d.Date + " " + d.Time
		} else {
			res, err := s.pDeadline.Run(e, schema.ParamsDeadline{
				Date:  d.Date,
				Time:  d.Time,
				Today: today(),
			}, "")
			if ctx.Err() != nil || mach.Tick(ss.ReminderCreating) != tick {
				return // expired
			}
			if err != nil {
				s.failFlow(e, ss.ReminderCreating, ss.ErrLLM, err,
					"Maaf, aku gagal memproses waktunya. Coba lagi ya.")
				return
			}
			deadline = res.Deadline
		}

		if _, err := time.Parse(taskstore.DeadlineLayout, deadline); err != nil {
			// input error, back to the time prompt
			s.output("Aku belum nangkep waktunya. Tulis jamnya kayak 15:00 ya.")
			mach.EvAdd1(e, ss.ReminderTimePicking, nil)
			return
		}
		s.reminder.Deadline = deadline

		confirmation := fmt.Sprintf("Pengingat %q tersimpan untuk %s.", d.Title,
			deadline)
		if s.deps.Calendar != nil {
			txt, err := requestTool(s, func() (string, error) {
				return s.deps.Calendar.CreateEvent(ctx, d.Title, deadline)
			})
			if ctx.Err() != nil || mach.Tick(ss.ReminderCreating) != tick {
				return // expired
			}
			switch {
			case errors.Is(err, calendar.ErrNoToken):
				// store-only reminder
				s.log.Warn("calendar skipped", "err", err)
			case err != nil:
				s.failFlow(e, ss.ReminderCreating, ss.ErrTool, err,
					"Maaf, gagal membuat acara di kalender. Coba lagi nanti ya.")
				return
			default:
				confirmation = txt
			}
		}
		err := s.deps.Store.Append(taskstore.Task{Title: d.Title, Deadline: deadline})
		if err != nil {
			s.failFlow(e, ss.ReminderCreating, ss.ErrStore, err,
				"Acaranya masuk kalender, tapi gagal kucatat di daftar tugas.")
			return
		}
		s.output(confirmation)

		if d.IsAssignment {
			s.plan = PlanDraft{Title: d.Title, Deadline: deadline}
			mach.EvAdd1(e, ss.TaskFilePending, nil)
		} else {
			mach.EvRemove1(e, ss.ReminderCreating, nil)
		}
	}()
}

// ///// ///// /////

// ///// PLAN

// ///// ///// /////

func (s *Session) TaskFilePendingState(e *am.Event) {
	s.output("Kirim file tugasnya ya (txt/md/html), biar kubuatkan rencana pengerjaan.")
}

func (s *Session) TaskTitlePendingState(e *am.Event) {
	s.output("Apa judul tugasnya?")
}

func (s *Session) TaskDeadlinePendingState(e *am.Event) {
	s.output("Kapan deadline-nya? Format: YYYY-MM-DD HH:MM.")
}

func (s *Session) PlanConfirmingState(e *am.Event) {
	txt := fmt.Sprintf("Tugas %q, deadline %s. Kubuatkan rencananya?",
		s.plan.Title, s.plan.Deadline)
	err := s.deps.UI.SendButtons(s.ChatId, txt, []Btn{
		{Id: BtnCreatePlan, Label: "✅ Buat rencana"},
		{Id: BtnCancelPlan, Label: "❌ Batal"},
	})
	e.Machine().EvAddErr(e, err, nil)
}

func (s *Session) PlanGeneratingState(e *am.Event) {
	mach := e.Machine()
	doc := ParseArgs(e.Args).Doc
	ctx := mach.NewStateCtx(ss.PlanGenerating)
	tick := mach.Tick(ss.PlanGenerating)

	// unblock
	go func() {
		if ctx.Err() != nil {
			return // expired
		}

		material := ""
		if doc != nil {
			var err error
			material, err = docs.ExtractText(doc.Path)
			if errors.Is(err, docs.ErrUnsupported) {
				// input error, back to the upload prompt
				s.output("Format filenya belum kudukung. Kirim txt, md, atau html ya.")
				mach.EvAdd1(e, ss.TaskFilePending, nil)
				return
			}
			if err != nil {
				s.failFlow(e, ss.PlanGenerating, ss.ErrTool, err,
					"Maaf, aku gagal membaca filenya. Coba kirim ulang ya.")
				return
			}
			s.plan.Material = material
		}

		res, err := s.pPlan.Run(e, schema.ParamsPlan{
			Title:    s.plan.Title,
			Deadline: s.plan.Deadline,
			Today:    today(),
			Material: crop(material, 8000),
		}, "")
		if ctx.Err() != nil || mach.Tick(ss.PlanGenerating) != tick {
			return // expired
		}
		if err != nil {
			s.failFlow(e, ss.PlanGenerating, ss.ErrLLM, err,
				"Maaf, rencananya gagal kubuat. Coba lagi nanti ya.")
			return
		}

		s.output(res.Plan)
		s.plan = PlanDraft{}
		mach.EvRemove1(e, ss.PlanGenerating, nil)
	}()
}

// ///// ///// /////

// ///// FOCUS AND EVAL

// ///// ///// /////

// StartFocus begins a focus session for this chat.
func (s *Session) StartFocus() am.Result {
	return s.Mach.Add1(ss.FocusActive, nil)
}

// StopFocus ends a focus session and chains into the study-topic prompt.
func (s *Session) StopFocus() am.Result {
	if s.Mach.Not1(ss.FocusActive) {
		s.output("Kamu lagi tidak dalam mode fokus kok.")
		return am.Canceled
	}
	s.Mach.Remove1(ss.FocusActive, nil)

	return s.Mach.Add1(ss.StudyTopicPending, nil)
}

func (s *Session) FocusActiveState(e *am.Event) {
	mach := e.Machine()
	mach.EvAddErr(e, s.deps.Focus.Set(true), nil)

	// unblock
	go func() {
		if err := s.deps.Signal(focusmode.SignalStart); err != nil {
			s.log.Warn("focus signal", "err", err)
		}
	}()
	s.output("Mode fokus aktif. 💪 Kirim /focus_stop kalau sudah selesai belajar.")
}

func (s *Session) FocusActiveEnd(e *am.Event) {
	mach := e.Machine()
	mach.EvAddErr(e, s.deps.Focus.Set(false), nil)

	go func() {
		if err := s.deps.Signal(focusmode.SignalStop); err != nil {
			s.log.Warn("focus signal", "err", err)
		}
	}()
}

func (s *Session) StudyTopicPendingState(e *am.Event) {
	s.output("Sesi fokus selesai! 🎉 Tadi kamu belajar apa? " +
		"Kusiapkan kuis singkat buat ngecek.")
	s.armEvalWatchdog(ss.StudyTopicPending)
}

func (s *Session) EvalGeneratingState(e *am.Event) {
	mach := e.Machine()
	ctx := mach.NewStateCtx(ss.EvalGenerating)
	tick := mach.Tick(ss.EvalGenerating)

	// unblock
	go func() {
		if ctx.Err() != nil {
			return // expired
		}
		res, err := s.pEval.Run(e, schema.ParamsEval{
			Topic:  s.eval.Topic,
			Amount: s.deps.QuizItems,
		}, "")
		if ctx.Err() != nil || mach.Tick(ss.EvalGenerating) != tick {
			return // expired
		}
		if err != nil || len(res.Items) == 0 {
			s.failFlow(e, ss.EvalGenerating, ss.ErrLLM, err,
				"Maaf, kuisnya gagal kubuat. Coba sebutkan topiknya lagi nanti ya.")
			return
		}

		s.eval.Summary = res.Summary
		s.eval.Items = res.Items
		s.eval.Index = 0
		s.eval.Answers = nil

		// summary points first, then the questions one by one
		out := "Ringkasan " + s.eval.Topic + ":"
		for _, p := range res.Summary {
			out += "\n• " + p
		}
		s.output(out)
		mach.EvAdd1(e, ss.EvalAnswering, nil)
	}()
}

func (s *Session) EvalAnsweringState(e *am.Event) {
	s.askQuestion()
	s.armEvalWatchdog(ss.EvalAnswering)
}

func (s *Session) askQuestion() {
	ev := s.eval
	item := ev.Items[ev.Index]
	txt := fmt.Sprintf("Soal %d/%d: %s", ev.Index+1, len(ev.Items), item.Question)
	for _, o := range item.Options {
		txt += "\n" + o
	}
	s.output(txt)
}

// collectAnswer records one quiz answer and advances the index.
func (s *Session) collectAnswer(e *am.Event, txt string) {
	s.eval.Answers = append(s.eval.Answers, txt)
	s.eval.Index++

	if s.eval.Index < len(s.eval.Items) {
		s.askQuestion()
		s.armEvalWatchdog(ss.EvalAnswering)
		return
	}
	e.Machine().EvAdd1(e, ss.EvalScoring, nil)
}

func (s *Session) EvalScoringState(e *am.Event) {
	mach := e.Machine()
	ctx := mach.NewStateCtx(ss.EvalScoring)
	tick := mach.Tick(ss.EvalScoring)

	// unblock
	go func() {
		if ctx.Err() != nil {
			return // expired
		}
		ev := s.eval
		total := 0
		out := "Hasil kuis " + ev.Topic + ":"

		for i, item := range ev.Items {
			if i >= len(ev.Answers) {
				break
			}
			ans := ev.Answers[i]
			score := 0
			feedback := ""

			if item.Kind == "essay" {
				res, err := s.pScore.Run(e, schema.ParamsScore{
					Question:  item.Question,
					Reference: item.Answer,
					Answer:    ans,
				}, "")
				if ctx.Err() != nil || mach.Tick(ss.EvalScoring) != tick {
					return // expired
				}
				if err != nil {
					s.failFlow(e, ss.EvalScoring, ss.ErrLLM, err,
						"Maaf, penilaiannya gagal. Jawabanmu tetap kusimpan kok.")
					return
				}
				score = clampScore(res.Score)
				feedback = res.Feedback
			} else {
				score = 1
				if matchChoice(ans, item.Answer) {
					score = 100
				}
				feedback = "Jawaban: " + item.Answer
			}

			total += score
			out += fmt.Sprintf("\n%d. %d/100 %s", item.Number, score, feedback)
		}

		out += fmt.Sprintf("\n\nRata-rata: %d/100. Mantap, istirahat dulu ya! ☕",
			total/len(ev.Items))
		s.output(out)
		s.eval = Evaluation{}
		mach.EvRemove1(e, ss.EvalScoring, nil)
	}()
}

// armEvalWatchdog forces Idle when the quiz dialogue goes quiet. Activity is
// detected via the machine clock of the eval and inbound states.
func (s *Session) armEvalWatchdog(state string) {
	mach := s.Mach
	ctx := mach.NewStateCtx(state)
	watched := am.SAdd(sg.Eval, sg.Inbound)
	sum := mach.Time(watched).Sum(nil)

	go func() {
		select {
		case <-ctx.Done():
			return // expired

		case <-time.After(s.deps.EvalTimeout):
			if mach.Time(watched).Sum(nil) != sum {
				return // activity
			}
			mach.Add1(ss.SessionTimeout, Pass(&shared.A{
				ChatId:       s.ChatId,
				IntByTimeout: true,
			}))
		}
	}()
}

// ///// ///// /////

// ///// PAPERS AND DOCS

// ///// ///// /////

func (s *Session) PaperSearchingEnter(e *am.Event) bool {
	return ParseArgs(e.Args).Prompt != ""
}

func (s *Session) PaperSearchingState(e *am.Event) {
	mach := e.Machine()
	query := ParseArgs(e.Args).Prompt
	ctx := mach.NewStateCtx(ss.PaperSearching)
	tick := mach.Tick(ss.PaperSearching)

	// unblock
	go func() {
		if ctx.Err() != nil {
			return // expired
		}
		entries, err := requestTool(s, func() ([]string, error) {
			return s.deps.Papers.Search(ctx, query, s.deps.SearchLimit)
		})
		if ctx.Err() != nil || mach.Tick(ss.PaperSearching) != tick {
			return // expired
		}
		if err != nil {
			s.failFlow(e, ss.PaperSearching, ss.ErrTool, err,
				"Maaf, pencarian papernya lagi gangguan. Coba lagi nanti ya.")
			return
		}
		if len(entries) == 0 {
			s.output(fmt.Sprintf("Tidak ketemu paper untuk %q. Coba kata kunci lain.", query))
			mach.EvRemove1(e, ss.PaperSearching, nil)
			return
		}

		s.output(fmt.Sprintf("Ini yang kutemukan untuk %q:\n\n%s", query,
			strings.Join(entries, "\n\n")))
		mach.EvRemove1(e, ss.PaperSearching, nil)
	}()
}

func (s *Session) DocSummarizingEnter(e *am.Event) bool {
	return ParseArgs(e.Args).Doc != nil
}

func (s *Session) DocSummarizingState(e *am.Event) {
	mach := e.Machine()
	doc := ParseArgs(e.Args).Doc
	ctx := mach.NewStateCtx(ss.DocSummarizing)
	tick := mach.Tick(ss.DocSummarizing)

	caption := strings.ToLower(doc.Caption)
	lang := "id"
	if strings.Contains(caption, "english") || strings.Contains(caption, "inggris") {
		lang = "en"
	}
	highlight := strings.Contains(caption, "highlight") ||
		strings.Contains(caption, "tandai")

	// unblock
	go func() {
		if ctx.Err() != nil {
			return // expired
		}

		text, err := docs.ExtractText(doc.Path)
		if errors.Is(err, docs.ErrUnsupported) {
			s.output("Format filenya belum kudukung. Kirim txt, md, atau html ya.")
			mach.EvRemove1(e, ss.DocSummarizing, nil)
			return
		}
		if err != nil {
			s.failFlow(e, ss.DocSummarizing, ss.ErrTool, err,
				"Maaf, aku gagal membaca filenya. Coba kirim ulang ya.")
			return
		}

		if highlight {
			outPath, err := docs.Highlight(doc.Path, lang)
			if err != nil {
				s.log.Warn("highlight", "err", err)
			} else if err := s.deps.UI.SendFile(s.ChatId, outPath); err != nil {
				s.log.Warn("send highlight", "err", err)
			}
		}

		res, err := s.pSummarize.Run(e, schema.ParamsSummarize{
			Text:     crop(text, 8000),
			Language: lang,
		}, "")
		if ctx.Err() != nil || mach.Tick(ss.DocSummarizing) != tick {
			return // expired
		}
		if err != nil {
			s.failFlow(e, ss.DocSummarizing, ss.ErrLLM, err,
				"Maaf, rangkumannya gagal kubuat. Coba lagi nanti ya.")
			return
		}

		s.output("Rangkuman " + doc.Name + ":\n\n" + res.Summary)
		mach.EvRemove1(e, ss.DocSummarizing, nil)
	}()
}

// ///// ///// /////

// ///// ERRORS

// ///// ///// /////

func (s *Session) ExceptionState(e *am.Event) {
	s.ExceptionHandler.ExceptionState(e)
	args := am.ParseArgs(e.Args)
	s.log.Error("session exception", "err", args.Err)

	s.output("Maaf, terjadi kesalahan tak terduga. Coba ulangi ya. 🙏")
	e.Machine().Remove(sg.Flow, nil)
}

// failFlow converts an upstream error into a user-visible failure and
// returns the chat to Idle. No retries.
func (s *Session) failFlow(e *am.Event, flowState, errState string, err error, msg string) {
	mach := e.Machine()
	s.log.Error("flow failed", "state", flowState, "err", err)
	s.output(msg)
	mach.EvRemove1(e, flowState, nil)
	// tag after the flow drop, the next dialogue step clears it
	mach.EvAdd1(e, errState, nil)
}

// ///// ///// /////

// ///// HELPERS

// ///// ///// /////

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 100 {
		return 100
	}

	return score
}

func matchChoice(answer, reference string) bool {
	a := strings.TrimSpace(strings.ToLower(answer))
	r := strings.TrimSpace(strings.ToLower(reference))

	return a == r || strings.Contains(a, r) || strings.Contains(r, a)
}

func crop(txt string, max int) string {
	runes := []rune(txt)
	if len(runes) <= max {
		return txt
	}

	return string(runes[:max])
}
