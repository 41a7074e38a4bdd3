// Package cpu binds pool workers to OS threads when a worker asks for a CPU
// or a scheduling priority that differs from the default.
package cpu

import (
	"errors"
	"runtime"
)

// ErrUnsupported is returned on platforms without thread affinity or niceness.
var ErrUnsupported = errors.New("cpu: not supported on " + runtime.GOOS)

// Nice bounds used by the kernel scheduler.
const (
	MinNice = -20
	MaxNice = 19
)

// GetNumCPU returns the number of logical CPUs available.
func GetNumCPU() int {
	return runtime.NumCPU()
}

// Binding describes what a worker wants from its OS thread.
type Binding struct {
	Pin  bool // pin to CPU (Core % NumCPU)
	Core int
	Nice int // 0 leaves the inherited niceness alone
}

// Bind locks the calling goroutine to its OS thread and applies b.
// It returns true when the thread was locked; errors from the kernel are
// returned but the lock is kept, since niceness may have been partially applied.
//
// A thread whose niceness was changed is never unlocked: when the goroutine
// exits locked, the runtime terminates the thread instead of reusing it.
func Bind(b Binding) (locked bool, err error) {
	if !b.Pin && b.Nice == 0 {
		return false, nil
	}

	runtime.LockOSThread()

	if b.Pin {
		if perr := pinToCore(b.Core); perr != nil {
			err = perr
		}
	}

	if b.Nice != 0 {
		if nerr := setNice(clampNice(b.Nice)); nerr != nil {
			err = errors.Join(err, nerr)
		}
	}

	return true, err
}

func clampNice(n int) int {
	return min(max(n, MinNice), MaxNice)
}
