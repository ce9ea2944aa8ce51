package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// parseJSONLD decodes every application/ld+json block and flattens top-level
// arrays and @graph containers into a single node list, in document order.
// Blocks that fail to decode are skipped.
func parseJSONLD(doc *goquery.Document) []map[string]any {
	var nodes []map[string]any
	doc.FindMatcher(selLDJSON).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err != nil {
			return
		}
		nodes = flattenLD(nodes, v)
	})
	return nodes
}

func flattenLD(dst []map[string]any, v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			dst = flattenLD(dst, item)
		}
	case map[string]any:
		dst = append(dst, t)
		if g, ok := t["@graph"]; ok {
			dst = flattenLD(dst, g)
		}
	}
	return dst
}

// ldType reports whether node's @type is, or contains, want.
func ldType(node map[string]any, want string) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

// ldString returns node[key] when it is a non-empty string or a number.
func ldString(node map[string]any, key string) string {
	switch v := node[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// firstLD returns the first non-empty value of any key, checking each node
// in order and, within a node, keys in order.
func (p *page) firstLD(keys ...string) string {
	for _, node := range p.ld {
		for _, k := range keys {
			if v := ldString(node, k); v != "" {
				return v
			}
		}
	}
	return ""
}

// ldImage unpacks the image shapes schema.org allows: a URL string, an array
// of them, or an ImageObject.
func ldImage(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if s := ldImage(item); s != "" {
				return s
			}
		}
	case map[string]any:
		if s := ldString(t, "url"); s != "" {
			return s
		}
		return ldString(t, "contentUrl")
	}
	return ""
}

// ldOffers returns the offer objects of a Product, whether offers is a single
// object or an array.
func ldOffers(product map[string]any) []map[string]any {
	var out []map[string]any
	switch t := product["offers"].(type) {
	case map[string]any:
		out = append(out, t)
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	return out
}
