package cpu

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/kernels/internal/tensor"
)

const defaultQueueDepth = 64

// command is one enqueued kernel launch.
type command struct {
	name string
	run  func(ctx context.Context) error
}

// Stream is an ordered, asynchronous command queue.
//
// Enqueue returns as soon as the command is queued; commands execute one
// after another on a single goroutine, so each kernel observes the writes of
// the kernels enqueued before it. After a failure the remaining queued
// commands are skipped until the failure is collected by Synchronize.
type Stream struct {
	queue chan command
	done  chan struct{}

	idleMu  sync.Mutex
	pending int
	idle    chan struct{} // closed while pending == 0

	closeMu sync.RWMutex
	closed  bool

	errMu sync.Mutex
	err   error // first failure since the last Synchronize
}

// NewStream starts a stream that buffers up to depth commands.
func NewStream(depth int) *Stream {
	if depth < 1 {
		depth = 1
	}
	s := &Stream{
		queue: make(chan command, depth),
		done:  make(chan struct{}),
		idle:  make(chan struct{}),
	}
	close(s.idle)
	go s.loop()
	return s
}

func (s *Stream) loop() {
	defer close(s.done)
	for cmd := range s.queue {
		s.execute(cmd)
		s.finish()
	}
}

func (s *Stream) finish() {
	s.idleMu.Lock()
	defer s.idleMu.Unlock()
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
}

func (s *Stream) execute(cmd command) {
	if s.failed() {
		klog.V(2).Infof("stream: skipping %s after earlier failure", cmd.name)
		return
	}
	err := runRecovered(cmd)
	if err == nil {
		return
	}
	klog.Errorf("stream: kernel %s failed: %v", cmd.name, err)
	s.errMu.Lock()
	if s.err == nil {
		s.err = errors.Wrapf(tensor.ErrLaunchFailed, "%s: %v", cmd.name, err)
	}
	s.errMu.Unlock()
}

func runRecovered(cmd command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return cmd.run(context.Background())
}

func (s *Stream) failed() bool {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err != nil
}

// Enqueue appends a command to the stream. It blocks only while the queue is
// full.
func (s *Stream) Enqueue(name string, run func(ctx context.Context) error) error {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return errors.Wrapf(tensor.ErrLaunchFailed, "%s: stream is closed", name)
	}
	s.idleMu.Lock()
	if s.pending == 0 {
		s.idle = make(chan struct{})
	}
	s.pending++
	s.idleMu.Unlock()
	s.queue <- command{name: name, run: run}
	return nil
}

// Synchronize blocks until every enqueued command has finished or ctx is
// done. It returns the first kernel failure since the previous call and
// clears it.
func (s *Stream) Synchronize(ctx context.Context) error {
	s.idleMu.Lock()
	idle := s.idle
	s.idleMu.Unlock()

	select {
	case <-idle:
	default:
		select {
		case <-idle:
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "stream synchronize")
		}
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// Close waits for queued commands and stops the stream goroutine. It returns
// any uncollected kernel failure.
func (s *Stream) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.closeMu.Unlock()

	<-s.done

	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}
