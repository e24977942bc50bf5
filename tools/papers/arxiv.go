package papers

import (
	"context"
	"encoding/xml"
	"fmt"

	"resty.dev/v3"

	"github.com/pancsta/studai/shared"
)

const arxivURL = "http://export.arxiv.org/api/query"

// Arxiv queries the arXiv Atom API.
type Arxiv struct {
	client *resty.Client
}

func NewArxiv() *Arxiv {
	return &Arxiv{client: resty.New()}
}

func (a *Arxiv) Name() string {
	return "arxiv"
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivEntry struct {
	Title   string        `xml:"title"`
	Summary string        `xml:"summary"`
	Id      string        `xml:"id"`
	Authors []arxivAuthor `xml:"author"`
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

func (a *Arxiv) Search(ctx context.Context, query string, limit int) ([]string, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search_query": "all:" + query,
			"start":        "0",
			"max_results":  fmt.Sprintf("%d", limit),
		}).
		Get(arxivURL)
	if err != nil {
		return nil, fmt.Errorf("arxiv: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("arxiv: HTTP %d", resp.StatusCode())
	}

	var feed arxivFeed
	if err := xml.Unmarshal(resp.Bytes(), &feed); err != nil {
		return nil, fmt.Errorf("arxiv: %w", err)
	}

	var entries []string
	for _, e := range feed.Entries {
		names := shared.Map(e.Authors, func(a arxivAuthor) string {
			return a.Name
		})
		entries = append(entries, formatEntry(e.Title, formatAuthors(names),
			e.Id, e.Summary))
	}

	return entries, nil
}
