package vmm

import (
	"testing"

	"github.com/anvil-os/anvil/kernel/mem/pmm"
)

func TestEntryFrameRoundtrip(t *testing.T) {
	var e entry

	frame := pmm.Frame(0x123)
	e.SetFrame(frame)
	if got := e.Frame(); got != frame {
		t.Errorf("expected frame %d; got %d", frame, got)
	}

	e.SetFlags(FlagPresent | FlagRW)
	if !e.HasFlags(FlagPresent) || !e.HasFlags(FlagRW) {
		t.Error("expected Present and RW flags to be set")
	}
	if e.HasFlags(FlagUser) {
		t.Error("did not expect User flag to be set")
	}

	e.ClearFlags(FlagRW)
	if e.HasFlags(FlagRW) {
		t.Error("expected RW flag to be cleared")
	}
	if got := e.Frame(); got != frame {
		t.Errorf("clearing a flag must not disturb the frame; expected %d, got %d", frame, got)
	}
}
