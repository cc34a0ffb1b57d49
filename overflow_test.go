package pyre

import "testing"

func TestOverflowBufferRoundsCapacityToPow2(t *testing.T) {
	b := NewOverflowBuffer(5)
	if len(b.slots) != 8 {
		t.Fatalf("expected capacity rounded to 8, got %d", len(b.slots))
	}
}

func TestOverflowBufferDropsAndCountsWhenFull(t *testing.T) {
	b := NewOverflowBuffer(2) // rounds to 2

	if !b.TryPush(newRecord(Info, 1, 1, "t", "one", timeAt(0))) {
		t.Fatal("first push should succeed")
	}
	if !b.TryPush(newRecord(Info, 1, 1, "t", "two", timeAt(1))) {
		t.Fatal("second push should succeed")
	}
	if b.TryPush(newRecord(Info, 1, 1, "t", "three", timeAt(2))) {
		t.Fatal("third push should be dropped once the ring is full")
	}
	if got := b.Dropped(); got != 1 {
		t.Fatalf("Dropped() = %d, want 1", got)
	}
}

func TestOverflowBufferPopAllDrainsEverything(t *testing.T) {
	b := NewOverflowBuffer(4)
	for i := 0; i < 4; i++ {
		if !b.TryPush(newRecord(Info, 1, 1, "t", "m", timeAt(i))) {
			t.Fatalf("push %d should succeed", i)
		}
	}
	got := b.PopAll()
	if len(got) != 4 {
		t.Fatalf("expected 4 records, got %d", len(got))
	}
	if b.Len() != 0 {
		t.Fatalf("buffer should be empty after PopAll, Len() = %d", b.Len())
	}
}

func TestNextPow2(t *testing.T) {
	cases := map[uint64]uint64{
		0: 1,
		1: 1,
		2: 2,
		3: 4,
		5: 8,
		1024: 1024,
		1025: 2048,
	}
	for in, want := range cases {
		if got := nextPow2(in); got != want {
			t.Errorf("nextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}
