package hashutil

import "testing"

func TestHashStringsSeparatesParts(t *testing.T) {
	if HashStrings("ab", "c") == HashStrings("a", "bc") {
		t.Fatal("part boundaries should change the digest")
	}
	if HashStrings("x", "y") != HashStrings("x", "y") {
		t.Fatal("digest is not deterministic")
	}
}

func TestShortHash(t *testing.T) {
	full := HashStrings("m", "50", "1")
	if got := ShortHash(16, "m", "50", "1"); got != full[:16] {
		t.Fatalf("ShortHash = %s, want %s", got, full[:16])
	}
	if got := ShortHash(0, "m"); got != HashStrings("m") {
		t.Fatalf("ShortHash(0) should return the full digest, got %s", got)
	}
	if got := ShortHash(1000, "m"); len(got) != 64 {
		t.Fatalf("ShortHash(1000) length = %d, want 64", len(got))
	}
}
