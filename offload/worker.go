package offload

import (
	"errors"
	"runtime"
	"sync"

	"github.com/remeh/sizedwaitgroup"
)

// executor runs encoded requests and hands back encoded responses. drain
// never blocks.
type executor interface {
	post(msg []byte) error
	drain(fn func([]byte))
	close()
}

var (
	errWorkerDisabled = errors.New("worker disabled")
	errWorkerBusy     = errors.New("worker inbox full")
)

const workerQueue = 256

// worker runs kernels on background goroutines. It shares nothing with the
// caller beyond the byte slices handed over its channels.
type worker struct {
	inbox  chan []byte
	outbox chan []byte
	quit   chan struct{}
	once   sync.Once
	swg    sizedwaitgroup.SizedWaitGroup
}

// newWorker starts a worker running at most n kernels at a time. n of zero
// uses one per CPU; a negative n is rejected.
func newWorker(n int) (*worker, error) {
	if n == 0 {
		n = runtime.NumCPU()
	}
	if n < 0 {
		return nil, errWorkerDisabled
	}
	w := &worker{
		inbox:  make(chan []byte, workerQueue),
		outbox: make(chan []byte, workerQueue),
		quit:   make(chan struct{}),
		swg:    sizedwaitgroup.New(n),
	}
	go w.run()
	return w, nil
}

func (w *worker) run() {
	for {
		select {
		case <-w.quit:
			w.swg.Wait()
			return
		case msg := <-w.inbox:
			w.swg.Add()
			go func(msg []byte) {
				defer w.swg.Done()
				out := handle(msg)
				select {
				case w.outbox <- out:
				case <-w.quit:
				}
			}(msg)
		}
	}
}

func (w *worker) post(msg []byte) error {
	select {
	case <-w.quit:
		return ErrClosed
	default:
	}
	select {
	case w.inbox <- msg:
		return nil
	default:
		return errWorkerBusy
	}
}

func (w *worker) drain(fn func([]byte)) {
	for {
		select {
		case out := <-w.outbox:
			fn(out)
		default:
			return
		}
	}
}

func (w *worker) close() {
	w.once.Do(func() { close(w.quit) })
}

// inProcess runs kernels synchronously on post and queues the responses for
// the next drain, so completion still arrives as a separate step.
type inProcess struct {
	ready [][]byte
}

func (p *inProcess) post(msg []byte) error {
	p.ready = append(p.ready, handle(msg))
	return nil
}

func (p *inProcess) drain(fn func([]byte)) {
	ready := p.ready
	p.ready = nil
	for _, out := range ready {
		fn(out)
	}
}

func (p *inProcess) close() {}
