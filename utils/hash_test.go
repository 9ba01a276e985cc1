package utils

import "testing"

func TestContentHashDeterministic(t *testing.T) {
	a := ContentHash("some segment content")
	b := ContentHash("some segment content")
	if a != b {
		t.Fatalf("hash is not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestContentHashIgnoresSurroundingWhitespace(t *testing.T) {
	if ContentHash("  content\n") != ContentHash("content") {
		t.Fatalf("trimmed and untrimmed content must hash identically")
	}
}

func TestContentHashDistinguishesContent(t *testing.T) {
	if ContentHash("content a") == ContentHash("content b") {
		t.Fatalf("different content must not collide")
	}
}

func TestSlugToTitle(t *testing.T) {
	cases := map[string]string{
		"https://example.com/la-prensa-del-pueblo/": "La Prensa Del Pueblo",
		"files/noticias_locales.txt":                "Noticias Locales",
		"plain":                                     "Plain",
	}
	for in, want := range cases {
		if got := SlugToTitle(in); got != want {
			t.Fatalf("SlugToTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
