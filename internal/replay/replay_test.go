package replay

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryGuard_AdmitOnce(t *testing.T) {
	g := NewMemoryGuard(time.Minute)
	defer g.Close()

	ctx := context.Background()
	accepted, err := g.Admit(ctx, "0xabc")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !accepted {
		t.Fatal("first admission must be accepted")
	}

	accepted, err = g.Admit(ctx, "0xabc")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if accepted {
		t.Fatal("second admission must be rejected")
	}

	if accepted, _ := g.Admit(ctx, "0xdef"); !accepted {
		t.Error("a different nonce must be independent")
	}
}

func TestMemoryGuard_ConcurrentAdmissionIsExactlyOnce(t *testing.T) {
	g := NewMemoryGuard(time.Minute)
	defer g.Close()

	const parallel = 64
	var wg sync.WaitGroup
	var acceptedCount atomic.Int32

	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			accepted, err := g.Admit(context.Background(), "0xshared")
			if err != nil {
				t.Errorf("Admit failed: %v", err)
				return
			}
			if accepted {
				acceptedCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if acceptedCount.Load() != 1 {
		t.Errorf("expected exactly 1 acceptance, got %d", acceptedCount.Load())
	}
}

func TestMemoryGuard_ExpiryAllowsReuseOnlyAfterWindow(t *testing.T) {
	g := NewMemoryGuard(30 * time.Millisecond)
	defer g.Close()

	ctx := context.Background()
	if accepted, _ := g.Admit(ctx, "0xexp"); !accepted {
		t.Fatal("first admission must be accepted")
	}
	if accepted, _ := g.Admit(ctx, "0xexp"); accepted {
		t.Fatal("nonce must stay blocked inside the window")
	}

	time.Sleep(50 * time.Millisecond)

	if accepted, _ := g.Admit(ctx, "0xexp"); !accepted {
		t.Error("nonce should be admissible again after the retention window")
	}
}
