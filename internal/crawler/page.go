package crawler

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Page is a fetched and parsed result page.
type Page struct {
	// URL is the URL that was requested.
	URL string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Size is the response body size in bytes.
	Size int

	// Doc is the parsed document.
	Doc *goquery.Document
}

// ParsePage parses body as HTML. x/net/html accepts any input, so an
// error here means the URL itself is unusable.
func ParsePage(pageURL string, status int, body []byte) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	doc := goquery.NewDocumentFromNode(root)
	doc.Url = u

	return &Page{
		URL:        pageURL,
		StatusCode: status,
		Size:       len(body),
		Doc:        doc,
	}, nil
}
