package randomness

import "testing"

func TestPickRange(t *testing.T) {
	p := NewCryptoPicker()

	for _, n := range []int{1, 2, 3, 10, 1000} {
		for i := 0; i < 100; i++ {
			got, err := p.Pick(n)
			if err != nil {
				t.Fatalf("Pick(%d) failed: %v", n, err)
			}
			if got < 0 || got >= n {
				t.Fatalf("Pick(%d) = %d, out of range", n, got)
			}
		}
	}
}

func TestPickSingleSlot(t *testing.T) {
	p := NewCryptoPicker()

	got, err := p.Pick(1)
	if err != nil {
		t.Fatalf("Pick(1) failed: %v", err)
	}
	if got != 0 {
		t.Fatalf("Pick(1) = %d, want 0", got)
	}
}

func TestPickRejectsNonPositive(t *testing.T) {
	p := NewCryptoPicker()

	for _, n := range []int{0, -1} {
		if _, err := p.Pick(n); err == nil {
			t.Fatalf("Pick(%d) succeeded, want error", n)
		}
	}
}

func TestPickCoversAllSlots(t *testing.T) {
	p := NewCryptoPicker()

	seen := make(map[int]bool)
	for i := 0; i < 500; i++ {
		got, err := p.Pick(3)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		seen[got] = true
	}

	for slot := 0; slot < 3; slot++ {
		if !seen[slot] {
			t.Fatalf("slot %d never picked in 500 draws", slot)
		}
	}
}
