package replay

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Redis tests run only against a real server; set REDIS_TEST_ADDR to
// enable them.
func newTestRedisGuard(t *testing.T) *RedisGuard {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	g, err := NewRedisGuard(addr, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisGuard failed: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestRedisGuard_AdmitOnce(t *testing.T) {
	g := newTestRedisGuard(t)

	nonce := "0xtest-" + time.Now().Format("150405.000000000")
	ctx := context.Background()
	if accepted, err := g.Admit(ctx, nonce); err != nil || !accepted {
		t.Fatalf("first admission: accepted=%v err=%v", accepted, err)
	}
	if accepted, err := g.Admit(ctx, nonce); err != nil || accepted {
		t.Fatalf("second admission: accepted=%v err=%v", accepted, err)
	}
}

func TestRedisGuard_ConcurrentAdmissionIsExactlyOnce(t *testing.T) {
	g := newTestRedisGuard(t)

	nonce := "0xconc-" + time.Now().Format("150405.000000000")
	const parallel = 32
	var wg sync.WaitGroup
	var acceptedCount atomic.Int32

	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			accepted, err := g.Admit(context.Background(), nonce)
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
