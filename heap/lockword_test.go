package heap

import "testing"

func TestLockWordTryForwardFirstWriterWins(t *testing.T) {
	var lw LockWord
	if !lw.TryForward(42) {
		t.Fatal("first TryForward should install the forwarding address")
	}
	if lw.TryForward(99) {
		t.Fatal("second TryForward must lose once forwarded")
	}
	to, ok := lw.Forwarded()
	if !ok || to != 42 {
		t.Fatalf("Forwarded() = (%v, %v), want (42, true)", to, ok)
	}
}

func TestLockWordUnforwardedByDefault(t *testing.T) {
	var lw LockWord
	if _, ok := lw.Forwarded(); ok {
		t.Fatal("zero-value LockWord must not report forwarded")
	}
}

func TestRBWordColorCAS(t *testing.T) {
	var rb RBWord
	if rb.Color() != White {
		t.Fatalf("zero-value RBWord color = %v, want White", rb.Color())
	}
	if !rb.CAS(White, Gray) {
		t.Fatal("White->Gray CAS should succeed on a fresh word")
	}
	if rb.Color() != Gray {
		t.Fatalf("color after CAS = %v, want Gray", rb.Color())
	}
	if rb.CAS(White, Gray) {
		t.Fatal("second White->Gray CAS must fail, word is already Gray")
	}
	if !rb.CAS(Gray, White) {
		t.Fatal("Gray->White CAS should succeed")
	}
}
