package pmm

import "testing"

// resetWithBacking installs a small bitmap backed by real Go memory instead
// of one built by Init from a Multiboot memory map, following the same
// real-backing convention kheap's and sched's tests use. nFrames frames are
// all marked free.
func resetWithBacking(t *testing.T, nFrames uint32) {
	t.Helper()

	words := (nFrames + wordBits - 1) / wordBits
	bitmap = make([]uint32, words)
	totalFrames = nFrames
	freeFrames = nFrames
}

func TestAllocFrameReturnsDistinctFrames(t *testing.T) {
	resetWithBacking(t, 8)

	seen := map[Frame]bool{}
	for i := 0; i < 8; i++ {
		f, err := AllocFrame()
		if err != nil {
			t.Fatalf("AllocFrame failed on frame %d: %v", i, err)
		}
		if seen[f] {
			t.Fatalf("AllocFrame returned frame %d twice", f)
		}
		seen[f] = true
	}

	if _, err := AllocFrame(); err == nil {
		t.Fatal("expected AllocFrame to fail once every frame is taken")
	}
}

func TestFreeFrameAllowsReuse(t *testing.T) {
	resetWithBacking(t, 4)

	f1, _ := AllocFrame()
	f2, _ := AllocFrame()
	_, _ = AllocFrame()

	FreeFrame(f2)
	f4, err := AllocFrame()
	if err != nil {
		t.Fatalf("AllocFrame failed: %v", err)
	}
	if f4 != f2 {
		t.Errorf("expected the freed frame %d to be reused; got %d", f2, f4)
	}
	if f4 == f1 {
		t.Error("expected the reused frame not to alias a still-allocated one")
	}
}

func TestMemoryAccountingStaysConsistent(t *testing.T) {
	resetWithBacking(t, 16)

	if got, want := TotalMemory(), UsedMemory()+FreeMemory(); got != want {
		t.Fatalf("expected total == used + free before any allocation; total=%d used+free=%d", got, want)
	}

	allocated := make([]Frame, 0, 5)
	for i := 0; i < 5; i++ {
		f, _ := AllocFrame()
		allocated = append(allocated, f)
	}

	if got, want := TotalMemory(), UsedMemory()+FreeMemory(); got != want {
		t.Fatalf("expected total == used + free after allocation; total=%d used+free=%d", got, want)
	}

	for _, f := range allocated {
		FreeFrame(f)
	}

	if got := UsedMemory(); got != 0 {
		t.Fatalf("expected used memory to return to 0 after freeing everything; got %d", got)
	}
}
