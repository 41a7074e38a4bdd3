package pool

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	PoolSize    int   // live workers
	Largest     int   // most workers ever live at once
	Active      int64 // workers currently running a task
	QueueLength int   // tasks waiting in the queue
	Submitted   int64 // tasks handed to Execute or Submit
	Completed   int64 // tasks run to completion by workers
	Rejected    int64 // tasks refused or dropped by the rejection policy
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	size, largest := p.poolSize, p.largest
	p.mu.Unlock()

	return Stats{
		PoolSize:    size,
		Largest:     largest,
		Active:      p.active.Load(),
		QueueLength: p.queue.len(),
		Submitted:   p.submitted.Load(),
		Completed:   p.completed.Load(),
		Rejected:    p.rejected.Load(),
	}
}

// CoreSize returns the configured core size.
func (p *Pool) CoreSize() int { return p.conf.coreSize }

// MaxSize returns the configured max size.
func (p *Pool) MaxSize() int { return p.conf.maxSize }

// QueueKind returns the resolved queue discipline.
func (p *Pool) QueueKind() QueueKind { return p.conf.queueKind }
