package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout is the hard limit for a single evaluation.
const DefaultTimeout = 5 * time.Second

var (
	ErrTimeout    = errors.New("engine: evaluation timed out")
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")
)

type evalResult struct {
	design *Design
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, giving up after timeout.
// A result whose generation is no longer current is discarded.
//
// On timeout the goroutine may still be running. Its result is drained in
// the background and the late design closed.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	timeout time.Duration,
) (*Design, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			if res.design != nil {
				res.design.Close()
			}
			return nil, nil, ErrSuperseded
		}
		return res.design, res.errors, res.err

	case <-timer.C:
		go closeLate(ch)
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}

func closeLate(ch <-chan evalResult) {
	if res := <-ch; res.design != nil {
		res.design.Close()
	}
}
