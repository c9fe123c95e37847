package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shopcrawl/shopcrawl/models"
)

var (
	// Numeric run immediately preceding a currency glyph, possibly with
	// thousands separators: "249,000đ", "$19", "25.990.000₫".
	reCurrencyAnchored = regexp.MustCompile(`(\d+(?:[.,]\d{3})*)\s*[đ$€₫¥]`)

	// Everything from the first currency glyph onward.
	reAfterCurrency = regexp.MustCompile(`[đ$€₫¥].*`)

	// Unambiguous decimal: one separator followed by 1-2 digits.
	reDecimal = regexp.MustCompile(`^\d+[.,]\d{1,2}$`)

	// Price-shaped number with optional separators.
	rePriceShaped = regexp.MustCompile(`\d+(?:[.,]\d{3})*(?:[.,]\d{2})?`)

	reDigits     = regexp.MustCompile(`\d+`)
	reLongDigits = regexp.MustCompile(`\d{5,}`)
	reThreePlus  = regexp.MustCompile(`\d{3,}`)

	// Class attribute hints for price containers. giá/gia covers the
	// accented and unaccented Vietnamese spellings.
	rePriceClass = regexp.MustCompile(`(?i)(price|giá|gia)`)

	// Discount badges: "-20%", "giảm 30%", "sale 15 %".
	reDiscountDash = regexp.MustCompile(`-(\d+)%`)
	reDiscountWord = regexp.MustCompile(`(?i)(?:giảm|sale|discount)\s*(\d+)\s*%`)
)

// Plausible VND bounds for bare digit runs found without price markup.
const (
	discountPairMin = 100000
	discountPairMax = 1e10
	aggressiveMin   = 50000
	aggressiveMax   = 1e10
)

// parsePriceString converts a textual amount to a float. "." and "," are
// treated as thousands separators unless the whole string is an
// unambiguous decimal (a single separator with 1-2 trailing digits).
func parsePriceString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if reDecimal.MatchString(s) {
		v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		return v, err == nil && v > 0
	}
	stripped := strings.NewReplacer(".", "", ",", "").Replace(s)
	runs := reDigits.FindAllString(stripped, -1)
	if len(runs) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Join(runs, ""), 64)
	return v, err == nil && v > 0
}

// lastDigitRun returns the last digit run in s after separator stripping,
// the shape a trailing price takes inside mixed text.
func lastDigitRun(s string) (float64, bool) {
	stripped := strings.NewReplacer(".", "", ",", "").Replace(s)
	runs := reDigits.FindAllString(stripped, -1)
	if len(runs) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(runs[len(runs)-1], 64)
	return v, err == nil && v > 0
}

// priceFromText extracts an amount from element text. The currency-anchored
// match is preferred; failing that, everything after the first currency
// glyph is dropped and the remaining digit runs are concatenated.
func priceFromText(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	if m := reCurrencyAnchored.FindStringSubmatch(text); m != nil {
		return parsePriceString(m[1])
	}

	clean := reAfterCurrency.ReplaceAllString(text, "")
	return parsePriceString(clean)
}

// firstByClassPattern returns the first element whose class attribute
// matches the pattern, or nil.
func firstByClassPattern(doc *goquery.Document, pattern *regexp.Regexp) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if pattern.MatchString(class) {
			found = s
			return false
		}
		return true
	})
	return found
}

// priceFromHTML searches common price markup: class hints, itemprop=price,
// data-price attributes.
func (e *Extractor) priceFromHTML(doc *goquery.Document) float64 {
	candidates := []*goquery.Selection{
		firstByClassPattern(doc, rePriceClass),
		doc.Find(`[itemprop="price"]`).First(),
		doc.Find("[data-price]").First(),
	}

	for _, sel := range candidates {
		if sel == nil || sel.Length() == 0 {
			continue
		}
		if price, ok := priceFromText(sel.Text()); ok {
			return price
		}
		// meta-style elements carry the amount in a content attribute.
		if content, exists := sel.Attr("content"); exists {
			if price, ok := parsePriceString(content); ok {
				return price
			}
		}
	}
	return 0
}

// applyDiscountPairs recovers sale pairs from <del>/<ins> markup and bare
// <s> strikethroughs. Only amounts in the plausible VND range are
// accepted, from the first 3 candidates of each tag type. This stage
// always runs: the original price is often only present as markup even
// when the current price came from structured data.
func (e *Extractor) applyDiscountPairs(doc *goquery.Document, rec *models.ProductRecord) {
	delTags := doc.Find("del")
	insTags := doc.Find("ins")

	if delTags.Length() > 0 && insTags.Length() > 0 {
		if rec.OriginalPrice == 0 {
			rec.OriginalPrice = firstPlausible(delTags)
		}
		if rec.Price == 0 {
			rec.Price = firstPlausible(insTags)
		}
	}

	if rec.OriginalPrice == 0 {
		rec.OriginalPrice = firstPlausible(doc.Find("s"))
	}
}

// firstPlausible returns the first in-range amount among the first three
// elements of the selection.
func firstPlausible(sel *goquery.Selection) float64 {
	var result float64
	sel.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= 3 {
			return false
		}
		text := strings.TrimSpace(s.Text())
		if !reThreePlus.MatchString(text) {
			return true
		}
		stripped := strings.NewReplacer(".", "", ",", "").Replace(text)
		runs := reDigits.FindAllString(stripped, -1)
		if len(runs) == 0 {
			return true
		}
		v, err := strconv.ParseFloat(strings.Join(runs, ""), 64)
		if err == nil && v > discountPairMin && v < discountPairMax {
			result = v
			return false
		}
		return true
	})
	return result
}

// aggressiveNumericPrice scans the full page text for runs of 5+ digits in
// the plausible range and takes the minimum: the smallest plausible price
// on a page is usually the current one, not a larger "was" price
// elsewhere.
func (e *Extractor) aggressiveNumericPrice(doc *goquery.Document) float64 {
	text := strings.NewReplacer(".", "", ",", "").Replace(doc.Text())

	var best float64
	for _, run := range reLongDigits.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(run, 64)
		if err != nil {
			continue
		}
		if v > aggressiveMin && v < aggressiveMax && (best == 0 || v < best) {
			best = v
		}
	}
	return best
}

// originalPriceFromHTML looks for the pre-sale price once the current
// price is known. Strategies in order: strikethrough tags, labelled
// old-price text near price markup, discount-percentage algebra, and the
// largest plausible price anywhere on the page.
func (e *Extractor) originalPriceFromHTML(doc *goquery.Document, current float64) float64 {
	// (a) strikethrough tags.
	var orig float64
	doc.Find("del, s, strike").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := lastDigitRun(s.Text()); ok && v > current && v < e.cfg.PriceMax {
			orig = v
			return false
		}
		return true
	})
	if orig > 0 {
		return orig
	}

	// (b) "old price" labels near price markup.
	if v := e.labelledOldPrice(doc, current); v > 0 {
		return v
	}

	// (c) discount percentage solved algebraically:
	// current = original * (1 - pct/100).
	pageText := doc.Text()
	for _, pct := range discountPercents(pageText) {
		calc := current / (1 - float64(pct)/100)
		if calc > current && calc < current*10 {
			return calc
		}
	}

	// (d) largest plausible price on the page, within 5x of current.
	var max float64
	for _, m := range rePriceShaped.FindAllString(pageText, -1) {
		v, ok := parsePriceString(m)
		if !ok {
			continue
		}
		if v > current*0.5 && v < e.cfg.PriceMax && v > max {
			max = v
		}
	}
	if max > current && max < current*5 {
		return max
	}
	return 0
}

var oldPriceLabels = []string{
	"old price", "original price", "giá gốc", "giá cũ", "giá khuyến mãi trước",
}

// labelledOldPrice walks the container around price markup looking for a
// labelled pre-sale amount.
func (e *Extractor) labelledOldPrice(doc *goquery.Document, current float64) float64 {
	anchors := []*goquery.Selection{
		firstByClassPattern(doc, rePriceClass),
		doc.Find(`[itemprop="price"]`).First(),
		doc.Find("[data-price]").First(),
	}

	for _, anchor := range anchors {
		if anchor == nil || anchor.Length() == 0 {
			continue
		}
		container := anchor.Closest("div, section, article")
		if container.Length() == 0 {
			container = anchor
		}

		var found float64
		container.Find("span, div, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.ToLower(s.Text())
			for _, label := range oldPriceLabels {
				if strings.Contains(text, label) {
					if v, ok := lastDigitRun(s.Text()); ok && v > current && v < e.cfg.PriceMax {
						found = v
						return false
					}
				}
			}
			return true
		})
		if found > 0 {
			return found
		}
	}
	return 0
}

// discountPercents collects discount percentages advertised on the page.
func discountPercents(text string) []int {
	var pcts []int
	for _, m := range reDiscountDash.FindAllStringSubmatch(text, -1) {
		if pct, err := strconv.Atoi(m[1]); err == nil && pct > 0 && pct < 99 {
			pcts = append(pcts, pct)
		}
	}
	for _, m := range reDiscountWord.FindAllStringSubmatch(text, -1) {
		if pct, err := strconv.Atoi(m[1]); err == nil && pct > 0 && pct < 99 {
			pcts = append(pcts, pct)
		}
	}
	return pcts
}
