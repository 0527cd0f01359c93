// Package pool runs tasks on a fixed set of goroutines. The queue is a stack: the most recently
// scheduled task runs first, so fresh requests overtake stale ones when the queue backs up.
package pool

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("pool: closed")

type Task func()

type Pool struct {
	mu     sync.Mutex
	wake   *sync.Cond
	tasks  []Task
	closed bool
	size   int
	wg     sync.WaitGroup
}

// New starts a pool of size workers; sizes below one start a single worker.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{size: size}
	p.wake = sync.NewCond(&p.mu)
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) Size() int {
	return p.size
}

// Schedule pushes t on top of the queue.
func (p *Pool) Schedule(t Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.tasks = append(p.tasks, t)
	p.wake.Signal()
	return nil
}

// Len reports the number of queued tasks that no worker has picked up yet.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// Close stops accepting tasks, lets the workers drain what is queued and waits for them to exit.
// Running tasks are never interrupted.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	p.wake.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		t, ok := p.pop()
		if !ok {
			return
		}
		t()
	}
}

// pop blocks until a task is available. It returns false once the pool is closed and empty.
func (p *Pool) pop() (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.tasks) == 0 {
		if p.closed {
			return nil, false
		}
		p.wake.Wait()
	}
	last := len(p.tasks) - 1
	t := p.tasks[last]
	p.tasks[last] = nil
	p.tasks = p.tasks[:last]
	return t, true
}
