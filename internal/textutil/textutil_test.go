package textutil

import "testing"

func TestTitle(t *testing.T) {
	if got := Title("  smart casual  "); got != "Smart Casual" {
		t.Fatalf("Title = %q", got)
	}
	if got := Title(""); got != "" {
		t.Fatalf("Title(empty) = %q", got)
	}
}

func TestSnippet(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"a  red\n\tscarf", 0, "a red scarf"},
		{"a red scarf", 20, "a red scarf"},
		{"a red wool scarf", 10, "a red w..."},
		{"héllo wörld", 3, "hél"},
	}
	for _, tc := range cases {
		if got := Snippet(tc.in, tc.limit); got != tc.want {
			t.Fatalf("Snippet(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(` a/b:c*d?"e<f>g| `); got != "a-b-c-defg" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("  <p></p> ", "<p></p>"); got != 1 {
		t.Fatalf("expected trimmed identical texts to score 1, got %v", got)
	}
	if got := Similarity("banana shop homepage", "banana shop contact"); got <= 0 || got >= 1 {
		t.Fatalf("expected partial similarity, got %v", got)
	}
}
