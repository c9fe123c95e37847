package sitemap

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shopcrawl/shopcrawl/models"
)

// Strict XML shapes, used only when the recovering parse finds no sitemap
// root at all.
type sitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

type urlset struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc string `xml:"loc"`
}

// Parse reads a sitemap document and returns its kind ("index" or
// "urlset") and the <loc> values found under it.
//
// Real-world sitemaps are frequently malformed or truncated, so the
// primary parse goes through the recovering x/net/html parser (via
// goquery), which is namespace-agnostic and keeps every complete element
// that precedes a truncation point. A strict encoding/xml pass runs only
// when the tolerant parse recognizes no sitemap root.
func Parse(content string) (string, []string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err == nil {
		if doc.Find("sitemapindex").Length() > 0 {
			return models.SitemapKindIndex, locsUnder(doc, "sitemapindex sitemap loc"), nil
		}
		if doc.Find("urlset").Length() > 0 {
			return models.SitemapKindURLSet, locsUnder(doc, "urlset url loc"), nil
		}
	}

	// Strict fallback: well-formed input whose root the tolerant pass
	// somehow missed.
	var idx sitemapIndex
	if err := xml.Unmarshal([]byte(content), &idx); err == nil && len(idx.Sitemaps) > 0 {
		locs := make([]string, 0, len(idx.Sitemaps))
		for _, s := range idx.Sitemaps {
			if loc := strings.TrimSpace(s.Loc); loc != "" {
				locs = append(locs, loc)
			}
		}
		return models.SitemapKindIndex, locs, nil
	}

	var us urlset
	if err := xml.Unmarshal([]byte(content), &us); err == nil && len(us.URLs) > 0 {
		locs := make([]string, 0, len(us.URLs))
		for _, u := range us.URLs {
			if loc := strings.TrimSpace(u.Loc); loc != "" {
				locs = append(locs, loc)
			}
		}
		return models.SitemapKindURLSet, locs, nil
	}

	return "", nil, fmt.Errorf("sitemap: no sitemapindex or urlset root found")
}

// locsUnder collects trimmed, non-empty loc texts matching the selector.
func locsUnder(doc *goquery.Document, selector string) []string {
	var locs []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if loc := strings.TrimSpace(s.Text()); loc != "" {
			locs = append(locs, loc)
		}
	})
	return locs
}

// IsTruncated reports whether a sitemap body looks cut off mid-tag.
// Diagnostic only; the tolerant parser still recovers the complete
// elements before the cut.
func IsTruncated(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed != "" && !strings.HasSuffix(trimmed, ">")
}
