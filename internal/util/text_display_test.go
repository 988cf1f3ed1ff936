package util

import "testing"

func TestSnippetFlattensWhitespace(t *testing.T) {
	out := Snippet("Hello\x00   world \n\t again", 100)
	if out != "Hello world again" {
		t.Fatalf("unexpected snippet: %q", out)
	}
}

func TestSnippetTruncatesRunes(t *testing.T) {
	out := Snippet("ééééé ééééé", 5)
	if out != "ééééé..." {
		t.Fatalf("unexpected snippet: %q", out)
	}
}
