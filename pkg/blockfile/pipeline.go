package blockfile

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// pipeline fans block compression out over a worker pool while keeping the
// on-disk order identical to submission order. Each submitted block gets a
// dedicated result channel; workers fill the channels in whatever order they
// finish, and a single sink goroutine drains them strictly in submission
// order and performs the actual writes. Compression parallelizes, the file
// stays sequential.
type pipeline struct {
	w *Writer

	jobs    chan job
	ordered chan chan encoded

	workers *errgroup.Group
	sink    sync.WaitGroup

	mu  sync.Mutex
	err error
}

type job struct {
	raw  []byte
	done chan encoded
}

type encoded struct {
	raw        []byte
	compressed []byte
	sidecar    []byte
	err        error
}

func newPipeline(w *Writer, workers int) *pipeline {
	p := &pipeline{
		w:       w,
		jobs:    make(chan job, workers*2),
		ordered: make(chan chan encoded, workers*2),
	}

	p.workers = new(errgroup.Group)
	for i := 0; i < workers; i++ {
		p.workers.Go(p.work)
	}

	p.sink.Add(1)
	go p.run()
	return p
}

// submit queues raw for compression. The caller has already been handed the
// block's index; ordering is preserved by the sink, not by the workers. The
// bytes are copied here, so the caller may reuse its buffer as soon as
// WriteBlock returns, same as on the synchronous path.
func (p *pipeline) submit(raw []byte) {
	owned := make([]byte, len(raw))
	copy(owned, raw)

	j := job{raw: owned, done: make(chan encoded, 1)}
	p.ordered <- j.done
	p.jobs <- j
}

func (p *pipeline) work() error {
	for j := range p.jobs {
		compressed, sidecar, err := p.w.codec.Compress(j.raw)
		j.done <- encoded{raw: j.raw, compressed: compressed, sidecar: sidecar, err: err}
	}
	return nil
}

// run is the sink: one goroutine applying results in submission order. After
// the first failure it keeps draining so workers never block on a full
// channel, but performs no further writes.
func (p *pipeline) run() {
	defer p.sink.Done()
	for done := range p.ordered {
		e := <-done
		if p.firstErr() != nil {
			continue
		}
		if e.err != nil {
			p.setErr(e.err)
			continue
		}
		if err := p.w.appendEncoded(e.raw, e.compressed, e.sidecar); err != nil {
			p.setErr(err)
		}
	}
}

// wait shuts the pipeline down and reports the first error, if any. The
// writer calls it from Finalize and Abort; no submit may race with it.
func (p *pipeline) wait() error {
	close(p.jobs)
	_ = p.workers.Wait()
	close(p.ordered)
	p.sink.Wait()
	return p.firstErr()
}

func (p *pipeline) setErr(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
}

func (p *pipeline) firstErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
