package crawler

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// JobURL returns the first result page of query: <base>/result?qbase64=<b64>.
// The query is base64 encoded as UTF-8 and the value is URL-escaped.
func JobURL(baseURL, query string) string {
	v := url.Values{}
	v.Set("qbase64", base64.StdEncoding.EncodeToString([]byte(query)))
	return strings.TrimRight(baseURL, "/") + "/result?" + v.Encode()
}

// ResolveHref resolves a possibly relative href against baseURL.
func ResolveHref(baseURL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// PageURL sets the page and page_size parameters on rawURL, keeping any
// other parameters.
func PageURL(rawURL string, page, pageSize int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
