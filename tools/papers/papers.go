// Package papers searches academic papers across two providers and merges
// the results.
package papers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	am "github.com/pancsta/asyncmachine-go/pkg/machine"
	"golang.org/x/sync/errgroup"

	"github.com/pancsta/studai"
	baseschema "github.com/pancsta/studai/schema"
)

var ss = baseschema.ToolStates
var id = "papers"
var title = "Academic Search Results"

// failurePrefix marks provider entries which are errors, not results.
const failurePrefix = "⚠️"

// Provider is a single academic search backend returning formatted entries.
// The first line of every entry is the paper title.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

type Tool struct {
	*studai.Tool
	*am.ExceptionHandler

	providers []Provider
	query     string
	results   []string
}

func New(agent studai.AgentAPI, providers ...Provider) (*Tool, error) {
	var err error
	t := &Tool{
		providers: providers,
	}
	if len(providers) == 0 {
		t.providers = []Provider{NewScholar(), NewArxiv()}
	}
	t.Tool, err = studai.NewTool(agent, id, title, ss.Names(), baseschema.ToolSchema)
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
	doc.Clear()
	if len(t.results) == 0 {
		return &doc
	}

	doc.AddPart("Query: " + t.query)
	for _, r := range t.results[:min(10, len(t.results))] {
		line, _, _ := strings.Cut(r, "\n")
		doc.AddPart("- " + line)
	}

	return &doc
}

// Search is a blocking method that queries all providers in a bounded pool
// and merges their entries.
func (t *Tool) Search(ctx context.Context, query string, limit int) ([]string, error) {
	mach := t.Mach()
	mach.Add1(ss.Working, nil)
	defer mach.Add1(ss.Idle, nil)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	perProvider := make([][]string, len(t.providers))
	errs := make([]error, len(t.providers))
	names := make([]string, len(t.providers))
	for i, p := range t.providers {
		names[i] = p.Name()
		g.Go(func() error {
			res, err := p.Search(ctx, query, limit)
			if err != nil {
				// a single failed provider doesnt fail the search
				mach.AddErr(err, nil)
				errs[i] = err
				return nil
			}
			perProvider[i] = res

			return nil
		})
	}
	_ = g.Wait()

	merged, err := combine(perProvider, errs, names)
	if err != nil {
		return nil, err
	}
	t.query = query
	t.results = merged

	return t.results, nil
}

// combine merges provider entries and demotes partial failures to warning
// entries. A total outage fails the search.
func combine(perProvider [][]string, errs []error, names []string) ([]string, error) {
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 && failed == len(errs) {
		return nil, fmt.Errorf("all providers failed: %w", errors.Join(errs...))
	}

	out := Merge(perProvider...)
	for i, err := range errs {
		if err != nil {
			out = append(out, failurePrefix+" "+names[i]+
				" lagi gangguan, hasilnya belum lengkap.")
		}
	}

	return out, nil
}

// Merge concatenates provider entries, drops failures, and deduplicates by
// the first line (a proxy for the title).
func Merge(lists ...[]string) []string {
	var out []string
	seen := map[string]bool{}

	for _, list := range lists {
		for _, entry := range list {
			if strings.HasPrefix(entry, failurePrefix) {
				continue
			}
			first, _, _ := strings.Cut(entry, "\n")
			first = strings.TrimSpace(first)
			if first == "" || seen[first] {
				continue
			}
			seen[first] = true
			out = append(out, entry)
		}
	}

	return out
}

// formatEntry renders a single result, title first.
func formatEntry(title, authors, url, abstract string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(title))
	if authors != "" {
		b.WriteString("\n👤 " + authors)
	}
	if url != "" {
		b.WriteString("\n🔗 " + url)
	}
	if abstract != "" {
		b.WriteString("\n" + truncate(abstract, 150))
	}

	return b.String()
}

// formatAuthors keeps up to 3 names, with an "et al" suffix.
func formatAuthors(names []string) string {
	if len(names) == 0 {
		return ""
	}
	if len(names) > 3 {
		return strings.Join(names[:3], ", ") + " dkk."
	}

	return strings.Join(names, ", ")
}

func truncate(txt string, max int) string {
	txt = strings.Join(strings.Fields(txt), " ")
	r := []rune(txt)
	if len(r) <= max {
		return txt
	}

	return string(r[:max]) + "…"
}
