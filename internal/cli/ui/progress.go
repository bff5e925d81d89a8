package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var defaultFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates an indeterminate operation such as a source fetch.
// All writes go through one mutex, so Stop and the animation goroutine never
// interleave output.
type Spinner struct {
	mu       sync.Mutex
	writer   io.Writer
	message  string
	interval time.Duration
	noColor  bool
	done     chan struct{}
	stopped  chan struct{}
}

// SpinnerOptions configures spinner behavior
type SpinnerOptions struct {
	Message  string
	NoColor  bool
	Interval time.Duration // Default: 100ms
}

// NewSpinner creates a new spinner
func NewSpinner(w io.Writer, opts SpinnerOptions) *Spinner {
	interval := opts.Interval
	if interval == 0 {
		interval = 100 * time.Millisecond
	}
	return &Spinner{
		writer:   w,
		message:  opts.Message,
		interval: interval,
		noColor:  opts.NoColor,
	}
}

// Start begins the spinner animation. Starting a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.animate(s.done, s.stopped)
}

// Stop stops the spinner and clears the line. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.mu.Lock()
	done, stopped := s.done, s.stopped
	s.done, s.stopped = nil, nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	<-stopped

	s.mu.Lock()
	fmt.Fprint(s.writer, "\r\033[K")
	s.mu.Unlock()
}

// Success stops the spinner and shows a success message
func (s *Spinner) Success(message string) {
	s.finish(color.New(color.FgGreen, color.Bold), "✓", message)
}

// Error stops the spinner and shows an error message
func (s *Spinner) Error(message string) {
	s.finish(color.New(color.FgRed, color.Bold), "❌", message)
}

func (s *Spinner) finish(c *color.Color, symbol, message string) {
	s.Stop()
	if s.noColor {
		c.DisableColor()
	}
	s.mu.Lock()
	c.Fprintf(s.writer, "%s %s\n", symbol, message)
	s.mu.Unlock()
}

func (s *Spinner) animate(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cyan := color.New(color.FgCyan)
	if s.noColor {
		cyan.DisableColor()
	}

	for frame := 0; ; frame = (frame + 1) % len(defaultFrames) {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			cyan.Fprintf(s.writer, "\r%s %s", defaultFrames[frame], s.message)
			s.mu.Unlock()
		}
	}
}

// ProgressBar renders determinate progress, e.g. model generation jobs.
// Methods are safe for concurrent use.
type ProgressBar struct {
	mu      sync.Mutex
	writer  io.Writer
	total   int
	current int
	width   int
	message string
	noColor bool
}

// ProgressBarOptions configures progress bar behavior
type ProgressBarOptions struct {
	Total   int
	Width   int // Default: 40
	Message string
	NoColor bool
}

// NewProgressBar creates a new progress bar
func NewProgressBar(w io.Writer, opts ProgressBarOptions) *ProgressBar {
	width := opts.Width
	if width == 0 {
		width = 40
	}
	return &ProgressBar{
		writer:  w,
		total:   opts.Total,
		width:   width,
		message: opts.Message,
		noColor: opts.NoColor,
	}
}

// Add increments the progress by the given amount
func (p *ProgressBar) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(p.current + n)
}

// Set sets the current progress to the given value
func (p *ProgressBar) Set(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(n)
}

// Update sets progress, total and message in one step. Its signature matches
// the build system's progress callback.
func (p *ProgressBar) Update(current, total int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.message = message
	p.set(current)
}

func (p *ProgressBar) set(n int) {
	p.current = min(max(n, 0), p.total)
	p.render()
}

// Finish completes the progress bar
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total == 0 {
		return
	}
	p.set(p.total)
	fmt.Fprintln(p.writer)
}

func (p *ProgressBar) render() {
	if p.total == 0 {
		return
	}

	percent := float64(p.current) / float64(p.total)
	filled := int(float64(p.width) * percent)

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if p.noColor {
		cyan.DisableColor()
		gray.DisableColor()
	}

	var bar strings.Builder
	bar.WriteString("[")
	cyan.Fprint(&bar, strings.Repeat("█", filled))
	gray.Fprint(&bar, strings.Repeat("░", p.width-filled))
	bar.WriteString("]")

	message := ""
	if p.message != "" {
		message = " " + p.message
	}

	// \033[K drops the tail of a longer previous message.
	fmt.Fprintf(p.writer, "\r%s %3d%%%s\033[K", bar.String(), int(percent*100), message)
}

// WithSpinner runs a function with a spinner indicator
func WithSpinner(w io.Writer, message string, noColor bool, fn func() error) error {
	spinner := NewSpinner(w, SpinnerOptions{Message: message, NoColor: noColor})
	spinner.Start()

	if err := fn(); err != nil {
		spinner.Error(fmt.Sprintf("%s failed", message))
		return err
	}
	spinner.Success(message)
	return nil
}
