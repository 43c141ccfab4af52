// internal/citation/citation.go
package citation

import (
	"net/url"

	"conduit/internal/knowledge"
	"conduit/internal/provider"
)

// Type distinguishes where a citation came from.
type Type string

const (
	TypeWebSearch Type = "websearch"
	TypeKnowledge Type = "knowledge"
)

// Citation is a normalized source record backing a response. Number is a
// contiguous 1..N sequence in final output order; URL is unique within
// a harvested list.
type Citation struct {
	Number      int
	URL         string
	Title       string
	Hostname    string
	Content     string
	ShowFavicon bool
	Type        Type
}

// adapter normalizes one vendor's search-result shape into citations.
type adapter func(*provider.SearchResults) []Citation

// adapters maps each vendor tag to its shape adapter. Adding a vendor
// means adding an entry here; the harvester core never changes.
var adapters = map[provider.Vendor]adapter{
	provider.VendorOpenAI:    fromAnnotations,
	provider.VendorAnthropic: fromWebResults,
	provider.VendorGemini:    fromGrounding,
}

// Harvest normalizes a vendor search payload plus optional knowledge hits
// into a deduplicated, renumbered citation list. Web citations come
// first in vendor order, then knowledge citations. Deduplication is by
// URL, first occurrence wins. Pure function of its inputs.
func Harvest(search *provider.SearchResults, hits []knowledge.Hit) []Citation {
	var all []Citation
	if search != nil {
		if adapt, ok := adapters[search.Vendor]; ok {
			all = adapt(search)
		} else {
			all = fromURLs(search)
		}
	}
	all = append(all, FromKnowledge(hits)...)

	seen := make(map[string]bool, len(all))
	out := make([]Citation, 0, len(all))
	for _, c := range all {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		c.Number = len(out) + 1
		out = append(out, c)
	}
	return out
}

// FromKnowledge converts knowledge-base hits into citation records.
func FromKnowledge(hits []knowledge.Hit) []Citation {
	out := make([]Citation, 0, len(hits))
	for _, h := range hits {
		out = append(out, Citation{
			URL:      h.SourceURL,
			Title:    h.Title,
			Hostname: hostname(h.SourceURL),
			Content:  h.Content,
			Type:     TypeKnowledge,
		})
	}
	return out
}

func fromAnnotations(s *provider.SearchResults) []Citation {
	out := make([]Citation, 0, len(s.Annotations))
	for _, a := range s.Annotations {
		out = append(out, web(a.URL, a.Title, ""))
	}
	return out
}

func fromWebResults(s *provider.SearchResults) []Citation {
	out := make([]Citation, 0, len(s.Results))
	for _, r := range s.Results {
		out = append(out, web(r.URL, r.Title, r.Snippet))
	}
	return out
}

func fromGrounding(s *provider.SearchResults) []Citation {
	out := make([]Citation, 0, len(s.Grounding))
	for _, g := range s.Grounding {
		out = append(out, web(g.URI, g.Title, ""))
	}
	return out
}

func fromURLs(s *provider.SearchResults) []Citation {
	out := make([]Citation, 0, len(s.URLs))
	for _, u := range s.URLs {
		out = append(out, web(u, "", ""))
	}
	return out
}

func web(rawURL, title, content string) Citation {
	return Citation{
		URL:         rawURL,
		Title:       title,
		Hostname:    hostname(rawURL),
		Content:     content,
		ShowFavicon: true,
		Type:        TypeWebSearch,
	}
}

// hostname derives the host from a URL, falling back to the raw string
// when it won't parse.
func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
