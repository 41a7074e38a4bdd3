package pool

import (
	"github.com/utkarsh5026/recall/internal/cpu"
)

// runWorker is the event loop of one worker goroutine: it runs first (if
// any), then keeps taking tasks until getTask tells it to retire.
func (p *Pool) runWorker(w *Worker, first runnable) {
	counted := true
	defer func() {
		p.workerExited(w, counted)
	}()

	if locked, err := cpu.Bind(p.factory.binding(w)); locked && err != nil {
		debugLog("worker %s: thread binding incomplete: %v", w.Name, err)
	}

	ctx := withWorker(p.interrupt, w)
	t := first
	for {
		if t == nil {
			var ok bool
			t, ok = p.getTask()
			if !ok {
				// getTask already released this worker's slot
				counted = false
				return
			}
		}

		p.active.Add(1)
		t.run(ctx, w, p.factory)
		p.active.Add(-1)
		p.completed.Add(1)
		t = nil
	}
}

// getTask blocks for the next task. It returns false when the worker must
// exit, having already decremented the pool size under the lock so that
// concurrent timeouts cannot shrink the pool below its core size.
func (p *Pool) getTask() (runnable, bool) {
	for {
		switch p.state.Load() {
		case stateStop:
			p.retire(true)
			return nil, false
		case stateShutdown:
			if t, ok := p.queue.tryPoll(); ok {
				return t, true
			}
			p.retire(true)
			return nil, false
		}

		p.mu.Lock()
		timed := p.conf.allowCoreTimeout || p.poolSize > p.conf.coreSize
		p.mu.Unlock()

		t, ok := p.queue.take(p.quit, timed, p.conf.keepAlive)
		if ok {
			return t, true
		}
		if timed && p.retire(false) {
			return nil, false
		}
		// woken by quit, or told to stay: the state switch above decides
	}
}

// retire releases the caller's worker slot and reports whether it did.
// Unless force is set, an idle worker only retires when it is above the core
// size (or core timeout is allowed) and it is not the last worker standing
// in front of a non-empty queue.
func (p *Pool) retire(force bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !force {
		if p.state.Load() != stateRunning {
			return false
		}
		mayGo := p.conf.allowCoreTimeout || p.poolSize > p.conf.coreSize
		if !mayGo || (p.poolSize <= 1 && p.queue.len() > 0) {
			return false
		}
	}

	p.poolSize--
	debugLog("worker retiring (pool size %d)", p.poolSize)
	return true
}

func (p *Pool) workerExited(w *Worker, counted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if counted {
		p.poolSize--
	}
	if !w.Daemon {
		p.liveUsers--
	}
	p.tryTerminateLocked()
}
