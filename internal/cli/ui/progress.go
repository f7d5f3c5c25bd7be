package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Spinner animates an indeterminate operation, such as waiting on the
// daemon while a pattern build or migration runs.
type Spinner struct {
	writer   io.Writer
	frames   []string
	interval time.Duration
	noColor  bool

	mu       sync.Mutex
	message  string
	active   bool
	stop     chan struct{}
	finished chan struct{}
}

// SpinnerOptions configures spinner behavior
type SpinnerOptions struct {
	Message  string
	NoColor  bool
	Interval time.Duration // Default: 100ms
}

var defaultFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewSpinner creates a new spinner
func NewSpinner(w io.Writer, opts SpinnerOptions) *Spinner {
	interval := opts.Interval
	if interval == 0 {
		interval = 100 * time.Millisecond
	}

	return &Spinner{
		writer:   w,
		message:  opts.Message,
		frames:   defaultFrames,
		interval: interval,
		noColor:  opts.NoColor,
	}
}

// Start begins the spinner animation. Starting an active spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.stop = make(chan struct{})
	s.finished = make(chan struct{})
	go s.animate(s.stop, s.finished)
}

// Stop halts the animation and clears the line. Safe to call more than
// once; only the first call after Start does anything.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	stop, finished := s.stop, s.finished
	s.mu.Unlock()

	close(stop)
	<-finished
	fmt.Fprint(s.writer, "\r\033[K")
}

// Success stops the spinner and shows a success message
func (s *Spinner) Success(message string) {
	s.Stop()
	green := color.New(color.FgGreen, color.Bold)
	if s.noColor {
		green.DisableColor()
	}
	green.Fprintf(s.writer, "✓ %s\n", message)
}

// Error stops the spinner and shows an error message
func (s *Spinner) Error(message string) {
	s.Stop()
	red := color.New(color.FgRed, color.Bold)
	if s.noColor {
		red.DisableColor()
	}
	red.Fprintf(s.writer, "❌ %s\n", message)
}

// UpdateMessage changes the spinner message
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

func (s *Spinner) animate(stop <-chan struct{}, finished chan<- struct{}) {
	defer close(finished)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cyan := color.New(color.FgCyan)
	if s.noColor {
		cyan.DisableColor()
	}

	frame := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			cyan.Fprintf(s.writer, "\r%s %s", s.frames[frame], msg)
			frame = (frame + 1) % len(s.frames)
		}
	}
}

// ProgressBar tracks a determinate operation, such as applying a known
// number of schema migrations.
type ProgressBar struct {
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
	p.Set(p.current + n)
}

// Set sets the current progress, clamped to [0, total].
func (p *ProgressBar) Set(n int) {
	p.current = n
	if p.current > p.total {
		p.current = p.total
	}
	if p.current < 0 {
		p.current = 0
	}
	p.render()
}

// Finish completes the progress bar
func (p *ProgressBar) Finish() {
	p.current = p.total
	p.render()
	fmt.Fprintln(p.writer)
}

// FinishWithMessage completes the progress bar with a success message
func (p *ProgressBar) FinishWithMessage(message string) {
	p.Finish()
	green := color.New(color.FgGreen, color.Bold)
	if p.noColor {
		green.DisableColor()
	}
	green.Fprintf(p.writer, "✓ %s\n", message)
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

	suffix := ""
	if p.message != "" {
		suffix = " " + p.message
	}

	fmt.Fprintf(p.writer, "\r%s %3d%%%s", bar.String(), int(percent*100), suffix)
}

// WithSpinner runs fn with a spinner, reporting success or failure when
// it returns.
func WithSpinner(w io.Writer, message string, noColor bool, fn func() error) error {
	spinner := NewSpinner(w, SpinnerOptions{
		Message: message,
		NoColor: noColor,
	})
	spinner.Start()
	defer spinner.Stop()

	if err := fn(); err != nil {
		spinner.Error(fmt.Sprintf("%s failed", message))
		return err
	}

	spinner.Success(message)
	return nil
}

// WithProgress runs fn with a progress bar sized to total steps.
func WithProgress(w io.Writer, message string, total int, noColor bool, fn func(*ProgressBar) error) error {
	bar := NewProgressBar(w, ProgressBarOptions{
		Total:   total,
		Message: message,
		NoColor: noColor,
	})

	if err := fn(bar); err != nil {
		fmt.Fprintln(w)
		return err
	}

	bar.FinishWithMessage(message)
	return nil
}
