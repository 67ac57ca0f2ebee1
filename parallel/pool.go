// Package parallel runs independent pattern builds on a bounded set of
// goroutines.
package parallel

import (
	"errors"
	"runtime"
	"sync"
)

// Pool runs jobs on a fixed number of workers. A pool with one worker runs
// every job inline on the calling goroutine.
type Pool struct {
	wg      sync.WaitGroup
	workers int
	jobs    chan func()
	stop    func()

	mu   sync.Mutex
	errs []error
}

// Start launches numWorkers workers. Values below 1 mean GOMAXPROCS.
func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{workers: numWorkers, stop: func() {}}
	if numWorkers > 1 {
		p.jobs = make(chan func(), numWorkers)
		for range numWorkers {
			p.wg.Go(func() {
				for f := range p.jobs {
					f()
				}
			})
		}
		p.stop = sync.OnceFunc(func() { close(p.jobs) })
	}
	return p
}

// Workers returns the number of workers.
func (p *Pool) Workers() int { return p.workers }

// Do schedules f, blocking while every worker is busy. Errors returned by
// f are collected for Wait. Do must not be called after Wait.
func (p *Pool) Do(f func() error) {
	job := func() {
		if err := f(); err != nil {
			p.mu.Lock()
			p.errs = append(p.errs, err)
			p.mu.Unlock()
		}
	}
	if p.jobs == nil {
		job()
		return
	}
	p.jobs <- job
}

// Wait stops accepting jobs, waits for the running ones and returns their
// errors joined.
func (p *Pool) Wait() error {
	p.stop()
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}
