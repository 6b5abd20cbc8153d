package compute

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestWorkerPoolCoversDomain(t *testing.T) {
	t.Parallel()
	pool := NewWorkerPool(4)

	const n = 10000
	hits := make([]int32, n)
	err := pool.Dispatch(context.Background(), n, func(i int) {
		atomic.AddInt32(&hits[i], 1)
	})
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d executed %d times, want exactly once", i, h)
		}
	}
}

func TestWorkerPoolBarrier(t *testing.T) {
	t.Parallel()
	pool := NewWorkerPool(8)

	// The second dispatch reads what the first one wrote. If Dispatch
	// returned before the barrier, some reads would observe zeros.
	const n = 4096
	src := make([]float32, n)
	dst := make([]float32, n)

	ctx := context.Background()
	if err := pool.Dispatch(ctx, n, func(i int) { src[i] = float32(i) }); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if err := pool.Dispatch(ctx, n, func(i int) { dst[i] = src[i] * 2 }); err != nil {
		t.Fatalf("second dispatch: %v", err)
	}

	for i := range dst {
		if dst[i] != float32(i)*2 {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], float32(i)*2)
		}
	}
}

func TestWorkerPoolUnavailableAfterClose(t *testing.T) {
	t.Parallel()
	pool := NewWorkerPool(2)
	if !pool.Available() {
		t.Fatal("new pool should be available")
	}

	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if pool.Available() {
		t.Error("closed pool should not be available")
	}

	err := pool.Dispatch(context.Background(), 10, func(int) {})
	if err != ErrUnavailable {
		t.Errorf("Dispatch after Close = %v, want ErrUnavailable", err)
	}
}

func TestDispatchCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := NewWorkerPool(2).Dispatch(ctx, 10, func(int) { ran = true })
	if err == nil {
		t.Error("expected context error, got nil")
	}
	if ran {
		t.Error("kernel must not run after cancellation")
	}
}

func TestSerialMatchesWorkerPool(t *testing.T) {
	t.Parallel()
	const n = 1000

	serial := make([]float32, n)
	parallel := make([]float32, n)
	kernel := func(out []float32) Kernel {
		return func(i int) { out[i] = float32(i) * 0.5 }
	}

	ctx := context.Background()
	if err := NewSerial().Dispatch(ctx, n, kernel(serial)); err != nil {
		t.Fatalf("serial dispatch: %v", err)
	}
	if err := NewWorkerPool(4).Dispatch(ctx, n, kernel(parallel)); err != nil {
		t.Fatalf("parallel dispatch: %v", err)
	}

	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("mismatch at %d: serial %v, parallel %v", i, serial[i], parallel[i])
		}
	}
}

func TestDispatchEmptyDomain(t *testing.T) {
	t.Parallel()
	if err := NewWorkerPool(4).Dispatch(context.Background(), 0, func(int) {
		t.Error("kernel should never run for an empty domain")
	}); err != nil {
		t.Fatalf("Dispatch(0) = %v, want nil", err)
	}
}

func BenchmarkDispatch(b *testing.B) {
	pool := NewWorkerPool(0)
	data := make([]float32, 8192)
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = pool.Dispatch(ctx, len(data), func(i int) {
			data[i] = data[i]*0.5 + 1
		})
	}
}
