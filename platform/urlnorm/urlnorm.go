// Package urlnorm canonicalizes page URLs into stable comparison keys and
// classifies pages by category and commercial value. All functions are pure
// and never panic on malformed input.
package urlnorm

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// UnknownPage is the sentinel returned for URLs that cannot be parsed into a
// scheme plus host.
const UnknownPage = "Unknown Page"

// allowedQueryParams is the allow-list of query parameters retained by
// Normalize, in output order. Everything else is tracking noise and dropped.
var allowedQueryParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term",
	"utm_id", "gclid", "fbclid", "msclkid", "ref", "source",
}

// highValueKeywords flag pages with direct purchase or conversion intent.
var highValueKeywords = []string{
	"pricing", "contact", "demo", "trial", "signup", "register", "buy",
	"purchase", "checkout", "download", "whitepaper", "case-study",
	"product", "features",
}

// pageCategories maps path keywords to a category, first match wins.
var pageCategories = []struct {
	keyword  string
	category string
}{
	{"pricing", "pricing"},
	{"demo", "demo"},
	{"trial", "trial"},
	{"signup", "signup"},
	{"register", "signup"},
	{"checkout", "checkout"},
	{"buy", "checkout"},
	{"purchase", "checkout"},
	{"cart", "checkout"},
	{"download", "download"},
	{"whitepaper", "content"},
	{"case-study", "content"},
	{"ebook", "content"},
	{"webinar", "content"},
	{"blog", "blog"},
	{"docs", "docs"},
	{"documentation", "docs"},
	{"support", "support"},
	{"help", "support"},
	{"contact", "contact"},
	{"features", "product"},
	{"product", "product"},
	{"integrations", "product"},
	{"careers", "careers"},
	{"jobs", "careers"},
}

// DefaultCategory is returned when no keyword matches the path.
const DefaultCategory = "other"

// Normalize canonicalizes a raw URL into a stable comparison key:
// lowercased host, default ports dropped, duplicate and trailing slashes
// removed, and only allow-listed query parameters retained in a fixed order.
// Unparseable input yields UnknownPage rather than an error.
func Normalize(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return UnknownPage
	}

	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !isDefaultPort(u.Scheme, port) {
		host = host + ":" + port
	}

	normalized := url.URL{
		Scheme:   u.Scheme,
		Host:     host,
		Path:     normalizePath(u.Path),
		RawQuery: filterQuery(u.Query()),
	}

	out := normalized.String()
	if _, err := url.ParseRequestURI(out); err != nil {
		return UnknownPage
	}
	return out
}

func isDefaultPort(scheme, port string) bool {
	switch strings.ToLower(scheme) {
	case "http":
		return port == "80"
	case "https":
		return port == "443"
	}
	return false
}

// normalizePath works on the decoded path: collapses duplicate slashes,
// guarantees a leading slash, and strips the trailing slash except for root.
func normalizePath(path string) string {
	if path == "" {
		return ""
	}

	var b strings.Builder
	prevSlash := false
	for _, r := range path {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}
	path = b.String()

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

// filterQuery keeps only allow-listed parameters with non-empty values,
// emitted in allow-list order so output is deterministic.
func filterQuery(values url.Values) string {
	var b strings.Builder
	for _, key := range allowedQueryParams {
		vals, ok := values[key]
		if !ok {
			continue
		}
		for _, v := range vals {
			if v == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// ExtractDomain returns the lowercased host of the URL.
// The second return is false when the URL has no parseable host.
func ExtractDomain(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Hostname()), true
}

// RootDomain returns the registrable domain (eTLD+1) of the URL, e.g.
// "shop.example.co.uk" yields "example.co.uk". Falls back to the full host
// when the public suffix list cannot resolve it.
func RootDomain(raw string) (string, bool) {
	host, ok := ExtractDomain(raw)
	if !ok {
		return "", false
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, true
	}
	return root, true
}

// ExtractPath returns the decoded path of the URL.
// The second return is false when the URL cannot be parsed.
func ExtractPath(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Path == "" {
		return "/", true
	}
	return normalizePath(u.Path), true
}

// IsHighValuePage reports whether the URL path contains a keyword indicating
// purchase or conversion intent.
func IsHighValuePage(raw string) bool {
	path, ok := ExtractPath(raw)
	if !ok {
		return false
	}
	path = strings.ToLower(path)
	for _, kw := range highValueKeywords {
		if strings.Contains(path, kw) {
			return true
		}
	}
	return false
}

// PageCategory classifies the URL path against the ordered keyword table.
// The first matching keyword wins; unmatched paths are DefaultCategory.
func PageCategory(raw string) string {
	path, ok := ExtractPath(raw)
	if !ok {
		return DefaultCategory
	}
	path = strings.ToLower(path)
	for _, entry := range pageCategories {
		if strings.Contains(path, entry.keyword) {
			return entry.category
		}
	}
	return DefaultCategory
}
