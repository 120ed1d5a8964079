// Package offload brokers pixel kernel requests between the frame loop and a
// background worker. Requests are correlated by id, time out after a fixed
// deadline and fall back to running on the calling goroutine when no worker
// is available.
package offload

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"strconv"
	"time"
)

var (
	ErrTimeout     = errors.New("compute timed out")
	ErrClosed      = errors.New("compute client closed")
	ErrUnknownKind = errors.New("unknown compute kind")
	ErrCompute     = errors.New("compute failed")
)

// DefaultTimeout is how long a request may stay pending.
const DefaultTimeout = 1000 * time.Millisecond

// Config controls how a Client executes kernels.
type Config struct {
	// Workers bounds concurrent kernels on the worker. Zero means one per
	// CPU. A negative value makes worker construction fail.
	Workers int
	// DisableWorker runs every kernel in-process.
	DisableWorker bool
	Timeout       time.Duration
	Now           func() time.Time
	Logf          func(format string, v ...any)
}

// Result is the terminal outcome of one request. Exactly one of Image and
// Err is set.
type Result struct {
	ID    string
	Kind  Kind
	Image *image.RGBA
	Frame int
	Err   error
}

// OK reports whether the request produced a buffer.
func (r Result) OK() bool { return r.Err == nil && r.Image != nil }

// Stats counts broker activity since construction.
type Stats struct {
	Submitted int
	Worker    int
	InProcess int
	Fulfilled int
	Failed    int
	TimedOut  int
	Orphaned  int
	Bytes     uint64
}

type pending struct {
	id       string
	seq      uint64
	kind     Kind
	deadline time.Time
	done     func(Result)
}

type failure struct {
	res  Result
	done func(Result)
}

// Client is the request broker. It is not safe for concurrent use: Submit,
// Poll and Close must all be called from the frame loop goroutine.
type Client struct {
	cfg      Config
	exec     executor
	local    *inProcess
	usingW   bool
	pending  map[string]*pending
	failures []failure
	seq      uint64
	closed   bool
	stats    Stats
}

// New builds a client. When the worker cannot be constructed the client
// runs every request in-process.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &Client{
		cfg:     cfg,
		local:   &inProcess{},
		pending: make(map[string]*pending),
	}
	c.exec = c.local
	if cfg.DisableWorker {
		c.logf("compute worker disabled; running kernels in-process")
		return c
	}
	w, err := newWorker(cfg.Workers)
	if err != nil {
		c.logf("compute worker unavailable: %v; running kernels in-process", err)
		return c
	}
	c.exec = w
	c.usingW = true
	return c
}

func (c *Client) logf(format string, v ...any) {
	if c.cfg.Logf != nil {
		c.cfg.Logf(format, v...)
	}
}

// Supported reports whether requests run on the background worker.
func (c *Client) Supported() bool { return c.usingW && !c.closed }

// Pending returns the number of requests awaiting an outcome.
func (c *Client) Pending() int { return len(c.pending) + len(c.failures) }

// Stats returns a copy of the activity counters.
func (c *Client) Stats() Stats { return c.stats }

func (c *Client) nextID(now time.Time) (string, uint64) {
	c.seq++
	return "req_" + strconv.FormatUint(c.seq, 10) + "_" + strconv.FormatInt(now.UnixMilli(), 10), c.seq
}

// Submit queues a kernel request and returns its correlation id. done is
// called exactly once from a later Poll, or from Close, with the outcome.
// Submit never waits on the kernel.
func (c *Client) Submit(kind Kind, params any, done func(Result)) string {
	now := c.cfg.Now()
	id, seq := c.nextID(now)
	c.stats.Submitted++
	if done == nil {
		done = func(Result) {}
	}
	if c.closed {
		c.fail(Result{ID: id, Kind: kind, Err: ErrClosed}, done)
		return id
	}
	msg, err := encodeRequest(kind, id, params)
	if err != nil {
		c.fail(Result{ID: id, Kind: kind, Err: fmt.Errorf("encode %s: %w", kind, err)}, done)
		return id
	}
	c.pending[id] = &pending{
		id:       id,
		seq:      seq,
		kind:     kind,
		deadline: now.Add(c.cfg.Timeout),
		done:     done,
	}
	if c.usingW {
		err := c.exec.post(msg)
		if err == nil {
			c.stats.Worker++
			return id
		}
		c.logf("compute worker rejected %s: %v; running in-process", id, err)
	}
	c.stats.InProcess++
	c.local.post(msg)
	return id
}

func (c *Client) fail(res Result, done func(Result)) {
	c.failures = append(c.failures, failure{res: res, done: done})
}

// Poll delivers every response that has arrived, then fails every request
// whose deadline is at or before now. It returns the number of outcomes
// delivered. Responses for ids no longer pending are discarded.
func (c *Client) Poll(now time.Time) int {
	n := 0
	failures := c.failures
	c.failures = nil
	for _, f := range failures {
		c.stats.Failed++
		f.done(f.res)
		n++
	}

	receive := func(b []byte) {
		if c.resolve(b) {
			n++
		}
	}
	if c.usingW && !c.closed {
		c.exec.drain(receive)
	}
	c.local.drain(receive)

	var expired []*pending
	for _, p := range c.pending {
		if !now.Before(p.deadline) {
			expired = append(expired, p)
		}
	}
	slices.SortFunc(expired, func(a, b *pending) int { return int(a.seq) - int(b.seq) })
	for _, p := range expired {
		delete(c.pending, p.id)
		c.stats.TimedOut++
		c.logf("compute request %s (%s) timed out", p.id, p.kind)
		p.done(Result{ID: p.id, Kind: p.kind, Err: ErrTimeout})
		n++
	}
	return n
}

func (c *Client) resolve(b []byte) bool {
	resp, err := decodeResponse(b)
	if err != nil {
		c.stats.Orphaned++
		c.logf("compute response undecodable: %v", err)
		return false
	}
	p, ok := c.pending[resp.ID]
	if !ok {
		c.stats.Orphaned++
		c.logf("compute response %s discarded: no pending request", resp.ID)
		return false
	}
	delete(c.pending, resp.ID)

	res := Result{ID: resp.ID, Kind: p.kind, Frame: resp.Frame}
	switch {
	case resp.Err != "":
		res.Err = fmt.Errorf("%w: %s", ErrCompute, resp.Err)
	case len(resp.Pix) != resp.Width*resp.Height*4:
		res.Err = fmt.Errorf("%w: %dx%d buffer with %d bytes", ErrCompute, resp.Width, resp.Height, len(resp.Pix))
	default:
		pix := resp.Pix
		if pix == nil {
			pix = []byte{}
		}
		res.Image = &image.RGBA{Pix: pix, Stride: resp.Width * 4, Rect: image.Rect(0, 0, resp.Width, resp.Height)}
	}
	if res.Err != nil {
		c.stats.Failed++
	} else {
		c.stats.Fulfilled++
		c.stats.Bytes += uint64(len(res.Image.Pix))
	}
	p.done(res)
	return true
}

// Close tears down the worker and fails every pending request with
// ErrClosed. Calling Close again does nothing.
func (c *Client) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.exec.close()
	c.local.ready = nil

	var open []*pending
	for _, p := range c.pending {
		open = append(open, p)
	}
	slices.SortFunc(open, func(a, b *pending) int { return int(a.seq) - int(b.seq) })
	for _, p := range open {
		delete(c.pending, p.id)
		c.stats.Failed++
		p.done(Result{ID: p.id, Kind: p.kind, Err: ErrClosed})
	}
}
