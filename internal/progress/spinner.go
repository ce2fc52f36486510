package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// spinnerFrames defines the animation characters for the spinner.
var spinnerFrames = []string{"|", "/", "-", "\\"}

// spinnerInterval is the time between spinner frame updates.
const spinnerInterval = 100 * time.Millisecond

// Spinner shows an animated message while a release listing or other
// blocking call runs. Off a terminal the message is printed once.
type Spinner struct {
	mu      sync.Mutex
	output  io.Writer
	message string
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
	stopped bool
	isTTY   bool
}

// NewSpinner creates a new spinner that writes to the given output.
// If output is nil, os.Stderr is used.
func NewSpinner(output io.Writer) *Spinner {
	if output == nil {
		output = os.Stderr
	}
	return &Spinner{
		output: output,
		done:   make(chan struct{}),
		isTTY:  ShouldShowProgress(),
	}
}

// Start begins the spinner with the given message. Starting twice only
// updates the message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	s.message = message
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	if !s.isTTY {
		fmt.Fprintf(s.output, "%s\n", message)
		return
	}

	s.wg.Add(1)
	go s.animate()
}

// SetMessage updates the spinner message while it's running.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// Stop halts the spinner and clears the line.
func (s *Spinner) Stop() {
	if !s.halt() {
		return
	}
	if s.isTTY {
		fmt.Fprintf(s.output, "\r%s\r", strings.Repeat(" ", lineWidth))
	}
}

// StopWithMessage halts the spinner and prints a final message.
func (s *Spinner) StopWithMessage(message string) {
	if !s.halt() {
		return
	}
	if s.isTTY {
		fmt.Fprintf(s.output, "\r%s\r%s\n", strings.Repeat(" ", lineWidth), message)
	} else {
		fmt.Fprintf(s.output, "%s\n", message)
	}
}

// halt stops the animation and waits for it to exit. It reports false if
// the spinner was already stopped.
func (s *Spinner) halt() bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
	return true
}

func (s *Spinner) animate() {
	defer s.wg.Done()
	frame := 0
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()

			char := spinnerFrames[frame%len(spinnerFrames)]
			fmt.Fprint(s.output, pad(fmt.Sprintf("\r%s %s", char, msg)))
			frame++
		}
	}
}
