package model

// Link is a refine link discovered on a result page: a category-scoped
// sub-query that can itself be crawled.
//
// Identity is Href as an exact string. No normalization is applied, so two
// links that differ only in parameter order are distinct.
type Link struct {
	// Href is the crawl target. It may be relative to the site base URL.
	Href string `json:"href"`

	// Name is the display label of the link.
	Name string `json:"name"`

	// Category is the title of the page section the link was found in.
	Category string `json:"category"`

	// Count is the result count shown next to the link. Informational only.
	Count string `json:"count"`
}

// Extraction is what a page extractor yields for one result page.
type Extraction struct {
	// Records are the result rows, in page order.
	Records []Record

	// Links are the refine links, deduplicated within the page by Href.
	Links []Link

	// Query is the search query the page represents.
	Query string
}

// DedupeLinks returns links with later duplicates of the same Href removed.
// The first occurrence wins and order is preserved.
func DedupeLinks(links []Link) []Link {
	seen := make(map[string]struct{}, len(links))
	out := make([]Link, 0, len(links))
	for _, l := range links {
		if _, ok := seen[l.Href]; ok {
			continue
		}
		seen[l.Href] = struct{}{}
		out = append(out, l)
	}
	return out
}
