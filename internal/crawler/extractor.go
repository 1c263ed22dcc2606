package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/wsspider/internal/model"
)

// Extractor turns a parsed page into records and refine links.
// It is the only part of the engine that knows the site's markup.
type Extractor interface {
	// Extract returns the page's records and links. fallbackQuery is
	// used when the page does not state its own query.
	Extract(page *Page, fallbackQuery string) *model.Extraction

	// IsValidPage reports whether the page is a result page at all.
	IsValidPage(page *Page) bool

	// RequiresLogin reports whether an invalid page is a login page.
	RequiresLogin(page *Page) bool
}

// FOFA result page selectors.
const (
	selQuery       = "textarea.custom-textarea"
	selStatsNav    = ".hsxa-meta-data-list-nav-left"
	selStatsValue  = ".hsxa-highlight-color"
	selHoneypot    = ".fraud-text .highlight-text"
	selSection     = ".hsxa-list-main"
	selSectionName = ".hsxa-list-title"
	selRefineLink  = "a.hsxa-meta-data-stat-list-hover"
	selCountList   = ".hsxa-list-main-content"
	selCountRegion = ".hsxa-country-title"
	selItem        = ".hsxa-meta-data-item"
	selPager       = ".el-pager"
	selCheckGroup  = ".el-checkbox-group"
)

// refineMarker identifies hrefs that are sub-queries.
const refineMarker = "qbase64="

var (
	datePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	statusPattern = regexp.MustCompile(`^HTTP/[\d.]+\s+(\d{3})`)
)

// statFields maps the position of a highlighted value in the stats bar
// to its record field.
var statFields = []string{
	model.FieldTotalResults,
	model.FieldUniqueIPs,
	model.FieldQueryTime,
	model.FieldSearchType,
}

// FOFAExtractor extracts records and refine links from FOFA result pages.
type FOFAExtractor struct{}

var _ Extractor = FOFAExtractor{}

// IsValidPage reports whether the page has result items, a pager, or a
// result-selection group. A query with no hits still has the latter two.
func (FOFAExtractor) IsValidPage(page *Page) bool {
	d := page.Doc
	return d.Find(selItem).Length() > 0 ||
		d.Find(selPager).Length() > 0 ||
		d.Find(selCheckGroup).Length() > 0
}

// RequiresLogin reports whether the page text carries a login marker.
func (FOFAExtractor) RequiresLogin(page *Page) bool {
	text := page.Doc.Find("body").Text()
	return strings.Contains(text, "登录") || strings.Contains(text, "login")
}

// Extract implements Extractor.
func (FOFAExtractor) Extract(page *Page, fallbackQuery string) *model.Extraction {
	d := page.Doc

	query := strings.TrimSpace(d.Find(selQuery).First().Text())
	if query == "" {
		query = fallbackQuery
	}

	stats := pageStats(d)

	var records []model.Record
	d.Find(selItem).Each(func(_ int, item *goquery.Selection) {
		r := extractItem(item, query, stats)
		if r.Valid() {
			records = append(records, r)
		}
	})

	return &model.Extraction{
		Records: records,
		Links:   refineLinks(d),
		Query:   query,
	}
}

func pageStats(d *goquery.Document) model.PageStats {
	stats := model.PageStats{}
	nav := d.Find(selStatsNav).First()
	if nav.Length() == 0 {
		return stats
	}

	nav.Find(selStatsValue).Each(func(i int, s *goquery.Selection) {
		if i < len(statFields) {
			stats[statFields[i]] = text(s)
		}
	})
	if fraud := nav.Find(selHoneypot).First(); fraud.Length() > 0 {
		stats[model.FieldHoneypotExcluded] = text(fraud)
	}
	return stats
}

func refineLinks(d *goquery.Document) []model.Link {
	var links []model.Link
	d.Find(selSection).Each(func(_ int, section *goquery.Selection) {
		category := text(section.Find(selSectionName).First())

		section.Find(selRefineLink).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok || !strings.Contains(href, refineMarker) {
				return
			}

			count := a.Closest(selCountList).Find("span").First()
			if count.Length() == 0 {
				count = a.Closest(selCountRegion).Find(".titleRight").First()
			}

			links = append(links, model.Link{
				Href:     href,
				Name:     text(a),
				Category: category,
				Count:    text(count),
			})
		})
	})
	return model.DedupeLinks(links)
}

func extractItem(item *goquery.Selection, query string, stats model.PageStats) model.Record {
	r := model.NewRecord(query, stats)

	if addr, ok := item.Find("[data-clipboard-text]").First().Attr("data-clipboard-text"); ok {
		r[model.FieldAddr] = addr
	}

	setText(r, model.FieldPort, item.Find(".hsxa-port"))
	setText(r, model.FieldProtocol, item.Find(".hsxa-protocol"))
	setText(r, model.FieldTitle, item.Find(".hsxa-one-line.item"))
	setText(r, model.FieldIP, item.Find(".hsxa-jump-a"))
	setText(r, model.FieldFID, item.Find(".hsxa-fid-box"))

	// country / region / city are the jump links next to the first
	// oblique separator
	if sep := item.Find(".split-oblique-line").First(); sep.Length() > 0 {
		loc := sep.Parent().Find(".hsxa-jump-a")
		for i, field := range []string{model.FieldCountry, model.FieldRegion, model.FieldCity} {
			setText(r, field, loc.Eq(i))
		}
	}

	setText(r, model.FieldASN, item.Find(`a[href*="asn="]`))
	setText(r, model.FieldOrg, item.Find(`a[href*="org="]`))

	item.Find(".hsxa-meta-data-list-main-left p").Each(func(_ int, p *goquery.Selection) {
		if t := text(p); datePattern.MatchString(t) {
			r[model.FieldDate] = t
		}
	})

	setText(r, model.FieldProduct, item.Find(".hsxa-list-span"))

	if hdr := item.Find(".el-scrollbar__view span").First(); hdr.Length() > 0 {
		header := text(hdr)
		r[model.FieldHeader] = header
		if m := statusPattern.FindStringSubmatch(header); m != nil {
			r[model.FieldHTTPStatus] = m[1]
		}
	}

	setText(r, model.FieldHeaderHash, item.Find(`a[href*="header_hash="]`))
	setText(r, model.FieldBannerHash, item.Find(`a[href*="banner_hash="]`))

	return r
}

// setText stores the trimmed text of the first element of s, if any.
func setText(r model.Record, field string, s *goquery.Selection) {
	first := s.First()
	if first.Length() == 0 {
		return
	}
	r[field] = text(first)
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
