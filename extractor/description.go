package extractor

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const (
	descAcceptLen = 200
	descWeakLen   = 100
	sweepMaxBlock = 50
	blockMinLen   = 20
)

// Known description containers, most specific first. "mota" and
// "chi-tiet" are the unaccented slugs of "mô tả" and "chi tiết" that
// Vietnamese themes use in class names.
var descSelectors = []cascadia.Selector{
	cascadia.MustCompile(`div[class*="description"], section[class*="description"]`),
	cascadia.MustCompile(`div[id*="description"], section[id*="description"]`),
	cascadia.MustCompile(`div[class*="mota"], div[id*="mota"]`),
	cascadia.MustCompile(`div[class*="chi-tiet"], div[id*="chi-tiet"]`),
	cascadia.MustCompile(`div[class*="product-detail"], section[class*="product-detail"]`),
	cascadia.MustCompile(`div[class*="detail"], section[class*="detail"]`),
	cascadia.MustCompile(`[itemprop="description"]`),
	cascadia.MustCompile(`div[class*="entry-content"], div[class*="post-content"]`),
	cascadia.MustCompile(`div[data-section]`),
	cascadia.MustCompile(`div[class*="content"], section[class*="content"]`),
	cascadia.MustCompile(`main, article`),
}

var descHeadings = []string{
	"mô tả", "description", "chi tiết sản phẩm", "thông tin chi tiết",
	"product details", "about product", "thông tin sản phẩm",
}

var (
	reHeadingTag   = regexp.MustCompile(`^h[1-6]$`)
	reSkipClass    = regexp.MustCompile(`(?i)(spec|price|related|sidebar|nav|footer|breadcrumb)`)
	reSweepStrip   = regexp.MustCompile(`(?i)(nav|footer|sidebar|breadcrumb|menu|header|search|cart|comment|social|category|widget)`)
	reLeadingCrumb = regexp.MustCompile(`(?i)^trang chủ\s*[/>][^:]{0,200}:\s*`)
	reTrailingJunk = regexp.MustCompile(`(?i)(chia sẻ|share|like|đánh giá|review|gửi bình luận|bình luận \(\d*\)|liên hệ|contact).*$`)
)

var entityReplacer = strings.NewReplacer(
	" ", " ",
	"&nbsp;", " ",
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
	"&lt;", "<",
	"&gt;", ">",
)

var navPhrases = []string{
	"trang chủ", "giỏ hàng", "đăng nhập", "đăng ký", "thêm vào giỏ",
	"mua ngay", "xem thêm", "add to cart", "sign in", "login", "checkout",
}

// extractDescription runs the description cascade: known containers,
// heading-anchored sibling walks, a whole-page content sweep, and finally
// readability extraction. Accepts the first result long enough to be a
// real description, keeping shorter candidates as fallbacks.
func (e *Extractor) extractDescription(doc *goquery.Document, pageURL, rawHTML string) string {
	var weak string

	for _, sel := range descSelectors {
		node := doc.FindMatcher(sel).First()
		if node.Length() == 0 {
			continue
		}
		text := normalizeSpace(node.Text())
		if len(text) >= descAcceptLen {
			return text
		}
		if len(text) >= descWeakLen && len(text) > len(weak) {
			weak = text
		}
	}

	if text := e.descriptionAfterHeading(doc); len(text) >= descAcceptLen {
		return text
	} else if len(text) >= descWeakLen && len(text) > len(weak) {
		weak = text
	}

	// The sweep removes chrome nodes, so it works on a fresh parse and
	// leaves doc intact for the stages that follow.
	if text := e.sweepPageContent(rawHTML); len(text) >= descAcceptLen {
		return text
	} else if len(text) > len(weak) {
		weak = text
	}

	if len(weak) < descWeakLen {
		if text := e.readabilityText(pageURL, rawHTML); len(text) > len(weak) {
			weak = text
		}
	}
	return weak
}

// descriptionAfterHeading finds a description heading and collects the
// content blocks that follow it.
func (e *Extractor) descriptionAfterHeading(doc *goquery.Document) string {
	var result string
	doc.Find("h1, h2, h3, h4, h5, h6").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		text := strings.ToLower(normalizeSpace(h.Text()))
		if len(text) == 0 || len(text) >= 500 {
			return true
		}
		matched := false
		for _, kw := range descHeadings {
			if strings.Contains(text, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return true
		}

		blocks := collectSiblingBlocks(h)
		if len(blocks) > 0 {
			result = strings.Join(blocks, "\n")
			return false
		}
		return true
	})
	return result
}

// collectSiblingBlocks walks the siblings after a heading, gathering prose
// until the next heading or too many non-content nodes in a row.
func collectSiblingBlocks(h *goquery.Selection) []string {
	var blocks []string
	misses := 0

	for sib := h.Next(); sib.Length() > 0 && len(blocks) < 20 && misses < 5; sib = sib.Next() {
		tag := goquery.NodeName(sib)
		if reHeadingTag.MatchString(tag) {
			break
		}
		switch tag {
		case "table", "form", "script", "style":
			continue
		}
		if class, _ := sib.Attr("class"); reSkipClass.MatchString(class) {
			continue
		}

		text := normalizeSpace(sib.Text())
		if isContentBlock(text) {
			blocks = append(blocks, text)
			misses = 0
		} else {
			misses++
		}
	}
	return blocks
}

// sweepPageContent strips chrome from a fresh parse and keeps the longest
// prose blocks left over.
func (e *Extractor) sweepPageContent(rawHTML string) string {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	doc := goquery.NewDocumentFromNode(root)

	doc.Find("script, style, meta, link, noscript, svg, iframe").Remove()
	doc.Find("[class], [id]").Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		if reSweepStrip.MatchString(class) || reSweepStrip.MatchString(id) {
			s.Remove()
		}
	})

	var blocks []string
	seen := make(map[string]bool)
	doc.Find("p, h2, h3, h4, h5, li, blockquote, article, main").Each(func(_ int, s *goquery.Selection) {
		text := normalizeSpace(s.Text())
		if !isContentBlock(text) || seen[text] {
			return
		}
		seen[text] = true
		blocks = append(blocks, text)
	})

	sort.SliceStable(blocks, func(i, j int) bool { return len(blocks[i]) > len(blocks[j]) })
	if len(blocks) > sweepMaxBlock {
		blocks = blocks[:sweepMaxBlock]
	}
	return strings.Join(blocks, "\n")
}

func (e *Extractor) readabilityText(pageURL, rawHTML string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = nil
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), u)
	if err != nil {
		return ""
	}
	return normalizeSpace(article.TextContent)
}

// isContentBlock filters out navigation and numeric noise.
func isContentBlock(text string) bool {
	if len(text) <= blockMinLen {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range navPhrases {
		if strings.HasPrefix(lower, phrase) {
			return false
		}
	}
	letters, digits := 0, 0
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	return letters > 0 && digits < letters
}

// cleanDescription normalizes whitespace and trims breadcrumb prefixes and
// share-widget tails that leak in from page chrome.
func (e *Extractor) cleanDescription(desc string) string {
	desc = entityReplacer.Replace(desc)
	desc = normalizeSpace(desc)
	desc = reLeadingCrumb.ReplaceAllString(desc, "")
	desc = reTrailingJunk.ReplaceAllString(desc, "")
	desc = strings.TrimSpace(desc)

	if runes := []rune(desc); len(runes) > e.cfg.DescriptionMaxLen {
		desc = strings.TrimSpace(string(runes[:e.cfg.DescriptionMaxLen]))
	}
	return desc
}
