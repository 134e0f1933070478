package searchutil

import "testing"

func TestNormalize(t *testing.T) {
	if got := Normalize("  The  Pirate-Bay! (Mirror) "); got != "the pirate bay mirror" {
		t.Fatalf("unexpected normalized value %q", got)
	}
	if got := Normalize("   "); got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}
}

func TestMatchesQuery(t *testing.T) {
	query := Normalize("pirate bay")
	tokens := TokenizeNormalized(query)

	if !MatchesQuery("The Pirate Bay", query, tokens) {
		t.Fatalf("expected phrase match")
	}
	if !MatchesQuery("Bay of the Pirate", query, tokens) {
		t.Fatalf("expected token match")
	}
	if MatchesQuery("1337x", query, tokens) {
		t.Fatalf("expected no match")
	}
}

func TestTokenizeDeduplicates(t *testing.T) {
	tokens := TokenizeNormalized("bay pirate bay")
	if len(tokens) != 2 || tokens[0] != "bay" || tokens[1] != "pirate" {
		t.Fatalf("unexpected tokens %v", tokens)
	}
}

func TestTitleQuery(t *testing.T) {
	tests := []struct {
		title, year, want string
	}{
		{"Inception", "2010", "Inception 2010"},
		{" Amélie\u00a0Poulain ", "", "Amélie Poulain"},
		{"", "2010", "2010"},
		{"", "", ""},
	}
	for _, tc := range tests {
		if got := TitleQuery(tc.title, tc.year); got != tc.want {
			t.Fatalf("TitleQuery(%q, %q) = %q, want %q", tc.title, tc.year, got, tc.want)
		}
	}
}

func TestIMDbID(t *testing.T) {
	if got := IMDbID("http://www.imdb.com/title/tt1375666/maindetails"); got != "tt1375666" {
		t.Fatalf("unexpected id %q", got)
	}
	if got := IMDbID("https://www.themoviedb.org/movie/27205/"); got != "" {
		t.Fatalf("expected no id, got %q", got)
	}
}
