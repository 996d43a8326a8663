package urlnorm

import "testing"

func TestNormalize_CanonicalForm(t *testing.T) {
	got := Normalize("HTTP://Example.COM:80/Foo//Bar/?utm_source=x&gclid=1&irrelevant=2")
	want := "http://example.com/Foo/Bar?utm_source=x&gclid=1"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNormalize_KeepsNonDefaultPort(t *testing.T) {
	got := Normalize("https://example.com:8443/pricing")
	if got != "https://example.com:8443/pricing" {
		t.Fatalf("expected port 8443 kept, got %q", got)
	}

	got = Normalize("https://example.com:443/pricing")
	if got != "https://example.com/pricing" {
		t.Fatalf("expected default port dropped, got %q", got)
	}
}

func TestNormalize_RootPath(t *testing.T) {
	got := Normalize("https://example.com/")
	if got != "https://example.com/" {
		t.Fatalf("expected root path kept, got %q", got)
	}
}

func TestNormalize_DropsEmptyQueryValues(t *testing.T) {
	got := Normalize("https://example.com/page?utm_source=&ref=mail&x=1")
	if got != "https://example.com/page?ref=mail" {
		t.Fatalf("expected empty utm_source dropped, got %q", got)
	}

	got = Normalize("https://example.com/page?junk=1&noise=2")
	if got != "https://example.com/page" {
		t.Fatalf("expected query omitted entirely, got %q", got)
	}
}

func TestNormalize_UnparseableInput(t *testing.T) {
	for _, raw := range []string{"", "not a url", "example.com/foo", "://nope", "/relative/path"} {
		if got := Normalize(raw); got != UnknownPage {
			t.Errorf("Normalize(%q): expected sentinel, got %q", raw, got)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"HTTP://Example.COM:80/Foo//Bar/?utm_source=x&gclid=1&irrelevant=2",
		"https://Shop.Example.co.uk//a//b///c?fbclid=abc&q=1",
		"https://example.com/path%20with%20space?utm_campaign=Spring%20Sale",
		"email://9a1b2c3d/55512",
		"garbage input",
		"https://example.com/",
	}
	for _, raw := range inputs {
		once := Normalize(raw)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", raw, once, twice)
		}
	}
}

func TestExtractDomain(t *testing.T) {
	domain, ok := ExtractDomain("https://Shop.Example.COM/pricing")
	if !ok || domain != "shop.example.com" {
		t.Fatalf("expected shop.example.com, got %q (ok=%v)", domain, ok)
	}

	if _, ok := ExtractDomain("not a url"); ok {
		t.Fatal("expected failure for unparseable input")
	}
}

func TestRootDomain(t *testing.T) {
	root, ok := RootDomain("https://shop.example.co.uk/cart")
	if !ok || root != "example.co.uk" {
		t.Fatalf("expected example.co.uk, got %q (ok=%v)", root, ok)
	}
}

func TestExtractPath(t *testing.T) {
	path, ok := ExtractPath("https://example.com/products//widgets/")
	if !ok || path != "/products/widgets" {
		t.Fatalf("expected /products/widgets, got %q (ok=%v)", path, ok)
	}

	path, ok = ExtractPath("https://example.com")
	if !ok || path != "/" {
		t.Fatalf("expected root path for bare host, got %q (ok=%v)", path, ok)
	}

	if _, ok := ExtractPath("::broken::"); ok {
		t.Fatal("expected failure for unparseable input")
	}
}

func TestIsHighValuePage(t *testing.T) {
	if !IsHighValuePage("https://site.com/pricing") {
		t.Error("expected /pricing to be high value")
	}
	if !IsHighValuePage("https://site.com/resources/whitepaper-2026") {
		t.Error("expected whitepaper path to be high value")
	}
	if IsHighValuePage("https://site.com/about") {
		t.Error("expected /about to not be high value")
	}
	if IsHighValuePage("not a url") {
		t.Error("expected unparseable input to not be high value")
	}
}

func TestPageCategory(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://site.com/pricing", "pricing"},
		{"https://site.com/about", "other"},
		{"https://site.com/blog/posts/1", "blog"},
		{"https://site.com/register", "signup"},
		{"https://site.com/products/widget", "product"},
		{"https://site.com/cart/checkout", "checkout"},
		{"not a url", "other"},
	}
	for _, tc := range cases {
		if got := PageCategory(tc.url); got != tc.want {
			t.Errorf("PageCategory(%q): expected %q, got %q", tc.url, tc.want, got)
		}
	}
}
