package txid

import "testing"

func TestNew_Shape(t *testing.T) {
	id := New()
	if len(id) != 8 {
		t.Fatalf("got %q (len %d), want 8 chars", id, len(id))
	}
	for _, r := range id {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			t.Fatalf("got %q, want lowercase hex", id)
		}
	}
}

func TestNew_Distinct(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = struct{}{}
	}
}
