package arena

import (
	"sync"
	"time"

	"github.com/Iron-Ham/arena/internal/debate"
)

// Timer is a cancellable one-shot timer.
type Timer interface {
	// Stop cancels the timer. It returns false if the timer already fired
	// or was stopped.
	Stop() bool
}

// Clock abstracts time so recruitment deadlines can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// lockedPicker serializes access to a picker that is not safe for
// concurrent use, such as *rand.Rand, across recruitment timers.
type lockedPicker struct {
	mu     sync.Mutex
	picker debate.Picker
}

func (p *lockedPicker) IntN(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.picker.IntN(n)
}
