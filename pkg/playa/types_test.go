package playa

import "testing"

func TestInstanceIDRoundTrip(t *testing.T) {
	id := NewInstanceID()
	if id.IsZero() {
		t.Fatalf("expected non-zero id")
	}

	parsed, err := ParseInstanceID(id.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != id {
		t.Fatalf("round trip mismatch: %s vs %s", parsed, id)
	}
}

func TestParseInstanceIDRejectsGarbage(t *testing.T) {
	if _, err := ParseInstanceID("not-a-uuid"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDefaultPlaybackOptions(t *testing.T) {
	opts := DefaultPlaybackOptions()
	if !opts.ReportProgress {
		t.Fatalf("expected progress reporting on by default")
	}
	if opts.ProgressIntervalMS != 1000 {
		t.Fatalf("unexpected interval: %d", opts.ProgressIntervalMS)
	}
}
