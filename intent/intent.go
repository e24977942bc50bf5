// Package intent classifies free-form user text into assistant intents.
package intent

import (
	"strings"

	"github.com/orsinium-labs/enum"
)

// Kind enum

type Kind enum.Member[string]

var (
	KindReminder = Kind{"create_reminder"}
	KindPaper    = Kind{"find_paper"}
	KindPlan     = Kind{"create_task_plan"}
	KindGreeting = Kind{"greeting"}
	KindUnknown  = Kind{"unknown"}
	Kinds        = enum.New(KindReminder, KindPaper, KindPlan, KindGreeting,
		KindUnknown)
)

// Parse maps a raw label to a Kind, falling back to unknown.
func Parse(label string) Kind {
	k := Kinds.Parse(strings.TrimSpace(strings.ToLower(label)))
	if k == nil {
		return KindUnknown
	}

	return *k
}

// Result is a classified intent with its slots.
type Result struct {
	Kind Kind
	// Details is the reminder description (create_reminder).
	Details string
	// Topic is the subject (find_paper, create_task_plan).
	Topic string
	// Deadline is a free-form deadline phrase (create_task_plan).
	Deadline string
}

// bilingual (id / en) term sets

var assignTerms = []string{
	"tugas", "homework", "assignment", "deadline", "ujian", "essay", "esai",
}
var assignWords = []string{"pr"}

var helpTerms = []string{
	"rencana", "plan", "bantu", "help", "buatkan", "create", "kerjakan",
	"do it", "susun",
}

var remindTerms = []string{
	"ingatkan", "ingetin", "remind", "reminder", "jangan lupa",
}

var paperTerms = []string{
	"paper", "jurnal", "journal", "artikel ilmiah", "referensi", "makalah",
}

var greetTerms = []string{
	"halo", "hai", "hello", "hi", "hey", "pagi", "siang", "malam", "morning",
}

func hasTerm(lower string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}

	return false
}

func hasWord(lower string, words []string) bool {
	for _, f := range strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	}) {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}

	return false
}

// IsAssignment reports whether the text mentions homework or an assignment.
func IsAssignment(text string) bool {
	lower := strings.ToLower(text)
	return hasTerm(lower, assignTerms) || hasWord(lower, assignWords)
}

// Rules applies the deterministic classification rules and reports whether
// they decided. Plan intent wins over reminder whenever an assignment term
// co-occurs with a help term.
func Rules(text string) (Result, bool) {
	lower := strings.ToLower(text)
	assign := hasTerm(lower, assignTerms) || hasWord(lower, assignWords)
	help := hasTerm(lower, helpTerms)
	remind := hasTerm(lower, remindTerms)

	switch {
	case assign && help:
		return Result{Kind: KindPlan, Topic: text}, true

	case remind:
		return Result{Kind: KindReminder, Details: text}, true

	case hasTerm(lower, paperTerms) && help:
		return Result{Kind: KindPaper, Topic: text}, true

	case len(lower) < 25 && hasWord(lower, greetTerms):
		return Result{Kind: KindGreeting}, true
	}

	return Result{}, false
}
