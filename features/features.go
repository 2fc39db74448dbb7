// Package features extracts lexical features from URL strings.
package features

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FeatureCount is the dimension of the feature vector fed to the model.
const FeatureCount = 15

// URLFeatures holds the lexical features of a single URL, in the order
// the model was trained on.
type URLFeatures struct {
	URLLength    int
	PathLength   int
	QueryLength  int
	NumDigits    int
	NumLetters   int
	NumSpecial   int
	CountDot     int
	CountDash    int
	CountSlash   int
	CountAt      int
	CountQMark   int
	CountPercent int
	CountEqual   int
	HasHTTPS     int
	HasIP        int
}

// maxDotCount caps count_dot regardless of the actual dot count.
const maxDotCount = 4

var ipv4Pattern = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})$`)

// Extract computes the feature set for rawURL. It accepts arbitrary strings,
// never panics, and is safe for concurrent use. Missing URL components count
// as empty; has_https and has_ip are 0 when scheme or host cannot be
// determined.
func Extract(rawURL string) URLFeatures {
	scheme, host, path, query := splitURL(rawURL)

	f := URLFeatures{
		URLLength:    utf8.RuneCountInString(rawURL),
		PathLength:   utf8.RuneCountInString(path),
		QueryLength:  utf8.RuneCountInString(query),
		CountDash:    strings.Count(rawURL, "-"),
		CountSlash:   strings.Count(rawURL, "/"),
		CountAt:      strings.Count(rawURL, "@"),
		CountQMark:   strings.Count(rawURL, "?"),
		CountPercent: strings.Count(rawURL, "%"),
		CountEqual:   strings.Count(rawURL, "="),
	}

	dots := strings.Count(rawURL, ".")
	if dots > maxDotCount {
		dots = maxDotCount
	}
	f.CountDot = dots

	for _, r := range rawURL {
		switch {
		case unicode.IsDigit(r):
			f.NumDigits++
		case unicode.IsLetter(r):
			f.NumLetters++
		default:
			f.NumSpecial++
		}
	}

	if strings.EqualFold(scheme, "https") {
		f.HasHTTPS = 1
	}
	if isIPv4Host(host) {
		f.HasIP = 1
	}
	return f
}

// splitURL separates rawURL into scheme, host, path and query without
// validating any of them. The query starts at the first '?'; the part before
// it splits as scheme://host/path. Absent components are empty strings.
func splitURL(rawURL string) (scheme, host, path, query string) {
	rest := rawURL
	if q := strings.IndexByte(rest, '?'); q >= 0 {
		query = rest[q+1:]
		rest = rest[:q]
	}
	if i := strings.Index(rest, "://"); i >= 0 {
		scheme = rest[:i]
		rest = rest[i+3:]
	}
	if s := strings.IndexByte(rest, '/'); s >= 0 {
		host = rest[:s]
		path = rest[s+1:]
	} else {
		host = rest
	}
	return scheme, host, path, query
}

// isIPv4Host reports whether host is a dotted-decimal IPv4 literal.
// Userinfo and port are stripped before matching; each octet must be 1-3
// digits and numerically at most 255.
func isIPv4Host(host string) bool {
	if at := strings.LastIndexByte(host, '@'); at >= 0 {
		host = host[at+1:]
	}
	if colon := strings.IndexByte(host, ':'); colon >= 0 {
		host = host[:colon]
	}
	m := ipv4Pattern.FindStringSubmatch(host)
	if m == nil {
		return false
	}
	for _, octet := range m[1:] {
		n, err := strconv.Atoi(octet)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

// Vector returns the features as an ordered slice matching the training
// layout. The order must never change without retraining the model.
func (f URLFeatures) Vector() []float64 {
	return []float64{
		float64(f.URLLength),
		float64(f.PathLength),
		float64(f.QueryLength),
		float64(f.NumDigits),
		float64(f.NumLetters),
		float64(f.NumSpecial),
		float64(f.CountDot),
		float64(f.CountDash),
		float64(f.CountSlash),
		float64(f.CountAt),
		float64(f.CountQMark),
		float64(f.CountPercent),
		float64(f.CountEqual),
		float64(f.HasHTTPS),
		float64(f.HasIP),
	}
}

// Names returns the feature names in vector order.
func Names() []string {
	return []string{
		"url_length",
		"path_length",
		"query_length",
		"num_digits",
		"num_letters",
		"num_special",
		"count_dot",
		"count_dash",
		"count_slash",
		"count_at",
		"count_qmark",
		"count_percent",
		"count_equal",
		"has_https",
		"has_ip",
	}
}

// Map returns the features keyed by name, for the introspection endpoint.
func (f URLFeatures) Map() map[string]float64 {
	names := Names()
	vector := f.Vector()
	m := make(map[string]float64, len(names))
	for i, name := range names {
		m[name] = vector[i]
	}
	return m
}
