package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner draws a one-line status while a command waits on the registry or
// a snapshot store. The status can change while it spins, so a command can
// report which package or snapshot it is on.
type Spinner struct {
	w      io.Writer
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	status  string
	width   int // widest line drawn so far
	started bool
	stopped chan struct{}
	once    sync.Once
}

// newSpinner returns a stopped spinner writing to w. It stops by itself
// when ctx is cancelled.
func newSpinner(ctx context.Context, w io.Writer, format string, args ...any) *Spinner {
	spinCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       w,
		parent:  ctx,
		ctx:     spinCtx,
		cancel:  cancel,
		status:  fmt.Sprintf(format, args...),
		stopped: make(chan struct{}),
	}
}

// Start begins drawing. Calling it again has no effect.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

// Update replaces the status text.
func (s *Spinner) Update(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = fmt.Sprintf(format, args...)
}

// Step sets the status for item i of n, e.g. "Fetching react (2/5)".
func (s *Spinner) Step(i, n int, format string, args ...any) {
	s.Update("%s (%d/%d)", fmt.Sprintf(format, args...), i, n)
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w := len(s.status) + 2; w > s.width {
		s.width = w
	}
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.status))
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width == 0 {
		return
	}
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
}

// Stop halts the spinner and clears its line. It may be called more than
// once, and without Start.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.stopped
		}
		s.clearLine()
	})
}

// Cancelled reports whether the command context was cancelled.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}
