package format

import "testing"

func TestByteSize(t *testing.T) {
	if got := ByteSize(1024); got != "1.0 KiB" {
		t.Fatalf("got %q", got)
	}
}

func TestPassFailSkipped(t *testing.T) {
	if got := PassFail(false, false); got != SkipStyle.Render("-") {
		t.Fatalf("expected skip rendering, got %q", got)
	}
}

func TestPassFailOK(t *testing.T) {
	if got := PassFail(true, true); got != PassStyle.Render("OK") {
		t.Fatalf("expected OK rendering, got %q", got)
	}
}
