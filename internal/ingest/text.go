package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmynk/evenly/internal/calculator"
	"github.com/mmynk/evenly/internal/models"
)

var (
	itemLineRe = regexp.MustCompile(`^(.+?)\s+[$€£]?\s?(\d+\.\d{2})\s*$`)
	totalishRe = regexp.MustCompile(`(?i)\b(subtotal|total|tax|tip|gratuity|discounts?|balance|amount|payment|cash|credit|card)\b`)

	metadataRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(qty|sku|item|code|#)`),
		regexp.MustCompile(`^\d+$`),
	}

	notMerchantRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^receipt`),
		regexp.MustCompile(`^#?\d+$`),
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`),
		regexp.MustCompile(`^[A-Z]{2,3}\s*$`), // state codes
	}

	monthFirstRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`) // MM/DD/YYYY, MM-DD-YYYY
	yearFirstRe  = regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`)   // YYYY-MM-DD, YYYY/MM/DD

	subtotalRe = regexp.MustCompile(`(?i)\bsub\s?total\b.*?[$€£]?(\d+\.\d{2})`)
	discountRe = regexp.MustCompile(`(?i)\bdiscounts?\b.*?[$€£]?(\d+\.\d{2})`)
	taxRe      = regexp.MustCompile(`(?i)\btax\b.*?[$€£]?(\d+\.\d{2})`)
	tipRe      = regexp.MustCompile(`(?i)\b(?:tip|gratuity)\b.*?[$€£]?(\d+\.\d{2})`)
	totalRe    = regexp.MustCompile(`(?i)\btotal.*?[$€£]?(\d+\.\d{2})`)
)

type totals struct {
	subtotal    float64
	hasSubtotal bool
	discount    float64
	tax         float64
	tip         float64
	total       float64
	hasTotal    bool
}

// ParseText extracts a receipt from OCR text, one receipt line per text line.
// Item lines look like "NAME  12.34" (an optional currency sign is allowed);
// lines mentioning totals, tax, tip and the like are read as receipt totals.
// It fails with ErrMalformedReceipt when no item line is found.
func (p Parser) ParseText(text, paidBy string) (models.Receipt, error) {
	lines := cleanLines(text)

	items := p.extractItems(lines)
	if len(items) == 0 {
		return models.Receipt{}, fmt.Errorf("%w: no item lines found", ErrMalformedReceipt)
	}

	var itemsTotal float64
	for _, item := range items {
		itemsTotal += item.LineCost()
	}

	t := extractTotals(lines)
	receipt := models.Receipt{
		ID:        p.newID(),
		Merchant:  extractMerchant(lines),
		Items:     items,
		Subtotal:  calculator.RoundMoney(itemsTotal),
		Discounts: calculator.RoundMoney(t.discount),
		Tax:       calculator.RoundMoney(t.tax),
		Tip:       calculator.RoundMoney(t.tip),
		PaidBy:    paidBy,
	}
	if t.hasSubtotal {
		receipt.Subtotal = calculator.RoundMoney(t.subtotal)
	}
	if date, ok := extractDate(lines); ok {
		receipt.Date = date
	} else {
		receipt.Date = p.now()
	}
	if t.hasTotal {
		receipt.Total = calculator.RoundMoney(t.total)
	} else {
		receipt.Total = calculator.RoundMoney(computedTotal(receipt))
	}

	return receipt, nil
}

func cleanLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func extractMerchant(lines []string) string {
	for _, line := range lines {
		if len(line) > 2 && !matchesAny(notMerchantRes, line) {
			return line
		}
	}
	return unknownMerchant
}

func extractDate(lines []string) (time.Time, bool) {
	for _, line := range lines {
		if m := yearFirstRe.FindStringSubmatch(line); m != nil {
			if d, ok := makeDate(m[1], m[2], m[3]); ok {
				return d, true
			}
		}
		if m := monthFirstRe.FindStringSubmatch(line); m != nil {
			if d, ok := makeDate(m[3], m[1], m[2]); ok {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// makeDate rejects impossible dates such as 02/30 instead of normalizing them.
func makeDate(year, month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if len(year) == 2 {
		y += 2000
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func (p Parser) extractItems(lines []string) []models.ReceiptItem {
	var items []models.ReceiptItem
	for _, line := range lines {
		if totalishRe.MatchString(line) {
			continue
		}
		m := itemLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if len(name) < 2 || matchesAny(metadataRes, name) {
			continue
		}
		price, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		items = append(items, models.ReceiptItem{
			ID:       p.newID(),
			Name:     name,
			Price:    calculator.RoundMoney(price),
			Quantity: 1,
		})
	}
	return items
}

func extractTotals(lines []string) totals {
	var t totals
	for _, line := range lines {
		if v, ok := amount(subtotalRe, line); ok {
			t.subtotal, t.hasSubtotal = v, true
		} else if v, ok := amount(discountRe, line); ok {
			t.discount = v
		} else if v, ok := amount(taxRe, line); ok {
			t.tax = v
		} else if v, ok := amount(tipRe, line); ok {
			t.tip = v
		} else if v, ok := amount(totalRe, line); ok {
			t.total, t.hasTotal = v, true
		}
	}
	return t
}

func amount(re *regexp.Regexp, line string) (float64, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
