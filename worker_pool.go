package depot

import "sync"

// workerPool executes scheduler jobs on a fixed set of goroutines. A nil
// pool degrades to inline execution, which keeps single-threaded schedules
// free of goroutine overhead.
type workerPool struct {
	size   int
	jobs   chan func()
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	if size <= 1 {
		return nil
	}
	p := &workerPool{
		size:   size,
		jobs:   make(chan func()),
		closed: make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			job()
		case <-p.closed:
			return
		}
	}
}

// Submit hands the job to a worker, blocking until one is free. On a nil or
// closed pool the job runs inline on the caller.
func (p *workerPool) Submit(job func()) {
	if p == nil {
		job()
		return
	}
	select {
	case <-p.closed:
		job()
		return
	default:
	}
	if !safeSendJob(p.jobs, job) {
		job()
	}
}

// Close stops the workers after their current jobs. Idempotent.
func (p *workerPool) Close() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		close(p.closed)
		close(p.jobs)
	})
	p.wg.Wait()
}

func safeSendJob(ch chan func(), job func()) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	ch <- job
	return true
}
