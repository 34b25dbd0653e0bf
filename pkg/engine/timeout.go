package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/citybuilder/pkg/preset"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrSuperseded is returned when a newer load started while this one
	// ran. Its library must not be merged over the newer one.
	ErrSuperseded = errors.New("preset load superseded by a newer one")
	// ErrTimedOut is returned when preset source runs past the timeout.
	ErrTimedOut = errors.New("preset load timed out")
)

// evalResult carries what the evaluating goroutine produced.
type evalResult struct {
	lib      *preset.Library
	errors   []EvalError
	warnings []EvalWarning
	err      error
}

// latest reports the generation of the most recent load.
func (e *Engine) latest() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// awaitLibrary blocks until the load numbered gen reports on results or
// limit elapses. A runaway script keeps its goroutine; the buffered
// channel lets it finish and be collected without a reader.
func (e *Engine) awaitLibrary(results <-chan evalResult, gen uint64, limit time.Duration) (evalResult, error) {
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case <-timer.C:
		return evalResult{}, fmt.Errorf("%w after %s", ErrTimedOut, limit)
	case res := <-results:
		if gen != e.latest() {
			return evalResult{}, ErrSuperseded
		}
		return res, nil
	}
}
