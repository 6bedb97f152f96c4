package engine

import (
	"context"
	"sync"
)

// errorMerger allows to listen to multiple error channels. The first
// error cancels the run.
type errorMerger struct {
	wg        sync.WaitGroup
	cancelFn  context.CancelFunc
	errorChan chan error
}

func newMerger(cancelFn context.CancelFunc) *errorMerger {
	return &errorMerger{
		cancelFn:  cancelFn,
		errorChan: make(chan error, 1),
	}
}

// watch adds the error channel of a block. Returned channel is closed
// when the error channel is closed.
func (m *errorMerger) watch(ec <-chan error) <-chan struct{} {
	done := make(chan struct{})
	m.wg.Add(1)
	go func() {
		m.listen(ec)
		close(done)
	}()
	return done
}

// listen blocks until error channel is closed.
func (m *errorMerger) listen(ec <-chan error) {
	defer m.wg.Done()
	for err := range ec {
		m.cancelFn()
		select {
		case m.errorChan <- err:
		default:
		}
	}
}

// wait waits for all underlying error channels to be closed and then
// closes the output error channel.
func (m *errorMerger) wait() {
	m.wg.Wait()
	close(m.errorChan)
}

// drain waits until all listeners are done. Only the first error is
// propagated, the rest is discarded.
func (m *errorMerger) drain() {
	for range m.errorChan {
	}
}
