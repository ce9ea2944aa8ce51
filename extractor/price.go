package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// rePrice matches a currency-prefixed amount such as "$1,299.00" or "Rs. 499".
var rePrice = regexp.MustCompile(`(?i)([$₹£€]|Rs\.?)\s?(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`)

var (
	selBuyControl = cascadia.MustCompile(`button, a, input[type="submit"], input[type="button"]`)
	selPriceClass = cascadia.MustCompile(".price")
)

var buyPhrases = []string{"buy", "add to cart"}

// declaredPrice returns the price the page states in meta tags or JSON-LD.
func (p *page) declaredPrice() (price, currency string) {
	price = p.metaContent("product:price:amount", "og:price:amount")
	currency = p.metaContent("product:price:currency", "og:price:currency")
	if price != "" {
		return price, currency
	}

	for _, node := range p.ld {
		if !ldType(node, "Product") {
			continue
		}
		for _, offer := range ldOffers(node) {
			amount := ldString(offer, "price")
			if amount == "" {
				amount = ldString(offer, "lowPrice")
			}
			if amount == "" {
				continue
			}
			if c := ldString(offer, "priceCurrency"); c != "" {
				currency = c
			}
			return amount, currency
		}
	}
	return "", currency
}

// price runs the declared-price chain, then the text regex on commerce pages.
// Currency defaults to USD only when a price was found.
func (p *page) price() (price, currency string) {
	price, currency = p.declaredPrice()

	if price == "" && p.isCommercePage() {
		if m := rePrice.FindStringSubmatch(p.visibleText()); m != nil {
			price = strings.ReplaceAll(m[2], ",", "")
			currency = currencyForSymbol(m[1])
		}
	}

	if price == "" {
		return "", ""
	}
	if currency == "" {
		currency = "USD"
	}
	return price, strings.ToUpper(currency)
}

// isCommercePage reports whether the page independently looks like a shop
// page. The price regex is only trusted on such pages.
func (p *page) isCommercePage() bool {
	if p.ogType() == "product" {
		return true
	}
	if p.doc.FindMatcher(selPriceClass).Length() > 0 {
		return true
	}
	found := false
	p.doc.FindMatcher(selBuyControl).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label := strings.ToLower(s.Text() + " " + s.AttrOr("value", ""))
		for _, phrase := range buyPhrases {
			if strings.Contains(label, phrase) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func currencyForSymbol(sym string) string {
	switch s := strings.ToLower(sym); {
	case s == "₹", strings.HasPrefix(s, "rs"):
		return "INR"
	case s == "£":
		return "GBP"
	case s == "€":
		return "EUR"
	default:
		return "USD"
	}
}
