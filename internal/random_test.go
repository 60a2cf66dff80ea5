package internal

import "testing"

func TestNewSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID failed: %v", err)
	}

	parsed, err := ParseSessionID(sid.String())
	if err != nil {
		t.Fatalf("ParseSessionID failed: %v", err)
	}
	if parsed != sid {
		t.Fatalf("round trip mismatch: %v vs %v", parsed, sid)
	}
}

func TestNewSessionIDsAreUnique(t *testing.T) {
	seen := make(map[SessionID]bool, 128)
	for i := 0; i < 128; i++ {
		sid, err := NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID failed: %v", err)
		}
		if seen[sid] {
			t.Fatal("duplicate session id generated")
		}
		seen[sid] = true
	}
}

func TestParseSessionIDRejectsBadInput(t *testing.T) {
	for _, input := range []string{"", "too-short", "!!!not-base64url!!!", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"} {
		if _, err := ParseSessionID(input); err == nil {
			t.Fatalf("expected %q to be rejected", input)
		}
	}
}
