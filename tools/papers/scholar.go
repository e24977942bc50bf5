package papers

import (
	"context"
	"fmt"

	"resty.dev/v3"

	"github.com/pancsta/studai/shared"
)

const scholarURL = "https://api.semanticscholar.org/graph/v1/paper/search"

// Scholar queries the Semantic Scholar graph API.
type Scholar struct {
	client *resty.Client
}

func NewScholar() *Scholar {
	return &Scholar{client: resty.New()}
}

func (s *Scholar) Name() string {
	return "semantic-scholar"
}

type scholarAuthor struct {
	Name string `json:"name"`
}

type scholarPaper struct {
	Title    string          `json:"title"`
	Abstract string          `json:"abstract"`
	URL      string          `json:"url"`
	Authors  []scholarAuthor `json:"authors"`
}

type scholarResp struct {
	Data []scholarPaper `json:"data"`
}

func (s *Scholar) Search(ctx context.Context, query string, limit int) ([]string, error) {
	var out scholarResp
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":  query,
			"limit":  fmt.Sprintf("%d", limit),
			"fields": "title,authors,url,abstract",
		}).
		SetResult(&out).
		Get(scholarURL)
	if err != nil {
		return nil, fmt.Errorf("semantic scholar: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("semantic scholar: HTTP %d", resp.StatusCode())
	}

	var entries []string
	for _, p := range out.Data {
		names := shared.Map(p.Authors, func(a scholarAuthor) string {
			return a.Name
		})
		entries = append(entries, formatEntry(p.Title, formatAuthors(names),
			p.URL, p.Abstract))
	}

	return entries, nil
}
