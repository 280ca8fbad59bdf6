package common

import (
	"runtime"
)

// traceThread runs every ptrace request on the same locked OS thread.
// Linux only accepts trace requests from the thread that attached.
type traceThread struct {
	requests chan traceRequest
	done     chan struct{}
}

type traceRequest struct {
	fn  func() error
	err chan error
}

func newTraceThread() *traceThread {
	t := &traceThread{
		requests: make(chan traceRequest),
		done:     make(chan struct{}),
	}

	go t.run()
	return t
}

func (t *traceThread) run() {
	// never unlocked: the thread exits with the goroutine
	runtime.LockOSThread()

	for {
		select {
		case req := <-t.requests:
			req.err <- req.fn()

		case <-t.done:
			return
		}
	}
}

// exec is a blocking call to the provided function in the trace thread
func (t *traceThread) exec(fn func() error) error {
	req := traceRequest{
		fn:  fn,
		err: make(chan error, 1),
	}

	select {
	case t.requests <- req:
	case <-t.done:
		return ErrProcessExited
	}

	return <-req.err
}

func (t *traceThread) stop() {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}
