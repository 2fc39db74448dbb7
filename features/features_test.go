package features

import "testing"

func TestExtractVectorShape(t *testing.T) {
	urls := []string{
		"",
		"https://www.google.com",
		"http://192.168.1.1/admin?next=/",
		"not a url at all",
		"ftp://files.example.org/pub/readme.txt",
		"https://пример.рф/путь?q=значение",
	}
	for _, u := range urls {
		v := Extract(u).Vector()
		if len(v) != FeatureCount {
			t.Fatalf("url %q: expected %d features, got %d", u, FeatureCount, len(v))
		}
		for i, value := range v {
			if value < 0 {
				t.Fatalf("url %q: feature %s is negative: %v", u, Names()[i], value)
			}
		}
	}
}

func TestCharacterPartition(t *testing.T) {
	urls := []string{
		"https://www.example.com/a/b?x=1&y=2",
		"http://sub.domain-with-dash.net/%20path",
		"",
		"漢字とカタカナ123!",
	}
	for _, u := range urls {
		f := Extract(u)
		if f.NumDigits+f.NumLetters+f.NumSpecial != f.URLLength {
			t.Fatalf("url %q: partition broken: %d+%d+%d != %d",
				u, f.NumDigits, f.NumLetters, f.NumSpecial, f.URLLength)
		}
	}
}

func TestDotCountClamp(t *testing.T) {
	f := Extract("http://a.b.c.d.e.f.g.h")
	if f.CountDot != 4 {
		t.Fatalf("expected count_dot clamped to 4, got %d", f.CountDot)
	}
	f = Extract("http://a.com")
	if f.CountDot != 1 {
		t.Fatalf("expected count_dot 1, got %d", f.CountDot)
	}
}

func TestHasHTTPS(t *testing.T) {
	cases := []struct {
		url  string
		want int
	}{
		{"http://a.com", 0},
		{"https://a.com", 1},
		{"HTTPS://a.com", 1},
		{"ftp://a.com", 0},
		{"a.com/https", 0},
		{"http://a.com/?https=1", 0},
		{"", 0},
	}
	for _, c := range cases {
		if got := Extract(c.url).HasHTTPS; got != c.want {
			t.Fatalf("has_https(%q) = %d, want %d", c.url, got, c.want)
		}
	}
}

func TestHasIP(t *testing.T) {
	cases := []struct {
		url  string
		want int
	}{
		{"http://192.168.1.1/x", 1},
		{"http://example.com", 0},
		{"http://999.1.1.1", 0},
		{"http://10.0.0.1:8080/login", 1},
		{"http://user@8.8.8.8/", 1},
		{"http://1.2.3.4.5", 0},
		{"192.168.0.254/path", 1},
		{"", 0},
	}
	for _, c := range cases {
		if got := Extract(c.url).HasIP; got != c.want {
			t.Fatalf("has_ip(%q) = %d, want %d", c.url, got, c.want)
		}
	}
}

func TestPathAndQueryLengths(t *testing.T) {
	f := Extract("https://example.com/ab/cd?x=12")
	if f.PathLength != 5 {
		t.Fatalf("expected path_length 5, got %d", f.PathLength)
	}
	if f.QueryLength != 4 {
		t.Fatalf("expected query_length 4, got %d", f.QueryLength)
	}

	f = Extract("https://example.com")
	if f.PathLength != 0 || f.QueryLength != 0 {
		t.Fatalf("expected absent components to be 0, got path=%d query=%d", f.PathLength, f.QueryLength)
	}
}

func TestExtractDeterministic(t *testing.T) {
	const u = "https://login.bank-secure.com.evil.net/verify?id=1234&token=%41%42"
	first := Extract(u)
	second := Extract(u)
	if first != second {
		t.Fatalf("extraction not deterministic: %+v vs %+v", first, second)
	}
}

func TestNamesMatchVector(t *testing.T) {
	if len(Names()) != FeatureCount {
		t.Fatalf("expected %d names, got %d", FeatureCount, len(Names()))
	}
	m := Extract("https://www.google.com").Map()
	if len(m) != FeatureCount {
		t.Fatalf("expected %d map entries, got %d", FeatureCount, len(m))
	}
	if m["has_https"] != 1 {
		t.Fatalf("expected has_https 1 in map, got %v", m["has_https"])
	}
}
