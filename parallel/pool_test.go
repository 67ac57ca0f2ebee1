package parallel

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
)

func TestPoolRunsEveryJob(t *testing.T) {
	for _, workers := range []int{0, 1, 4} {
		t.Run(fmt.Sprint(workers), func(t *testing.T) {
			p := Start(workers)
			var sum atomic.Int64
			for i := 1; i <= 100; i++ {
				p.Do(func() error {
					sum.Add(int64(i))
					return nil
				})
			}
			if err := p.Wait(); err != nil {
				t.Fatal(err)
			}
			if sum.Load() != 5050 {
				t.Errorf("sum = %d", sum.Load())
			}
		})
	}
}

func TestPoolCollectsErrors(t *testing.T) {
	errOdd := errors.New("odd")
	p := Start(3)
	for i := range 10 {
		p.Do(func() error {
			if i%2 == 1 {
				return fmt.Errorf("job %d: %w", i, errOdd)
			}
			return nil
		})
	}
	err := p.Wait()
	if !errors.Is(err, errOdd) {
		t.Fatalf("err = %v", err)
	}
	if n := len(err.(interface{ Unwrap() []error }).Unwrap()); n != 5 {
		t.Errorf("%d errors, want 5", n)
	}
}

func TestSingleWorkerRunsInline(t *testing.T) {
	p := Start(1)
	ran := false
	p.Do(func() error {
		ran = true
		return nil
	})
	if !ran {
		t.Error("job did not run before Do returned")
	}
	if p.Workers() != 1 || p.Wait() != nil {
		t.Error("unexpected pool state")
	}
}
