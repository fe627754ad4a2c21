// Package speech provides text-based stand-ins for microphone capture and
// speech output.
package speech

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// ErrInputClosed is returned once the input reader is exhausted.
var ErrInputClosed = io.EOF

// Console reads utterances line by line from a reader.
type Console struct {
	lines  chan string
	errc   chan error
	prompt io.Writer
	once   sync.Once
	reader *bufio.Scanner
}

// NewConsole creates a capturer over r. When prompt is non-nil a "> " marker
// is written before each capture.
func NewConsole(r io.Reader, prompt io.Writer) *Console {
	return &Console{
		lines:  make(chan string),
		errc:   make(chan error, 1),
		prompt: prompt,
		reader: bufio.NewScanner(r),
	}
}

func (c *Console) start() {
	go func() {
		for c.reader.Scan() {
			c.lines <- c.reader.Text()
		}
		err := c.reader.Err()
		if err == nil {
			err = ErrInputClosed
		}
		c.errc <- err
		close(c.lines)
	}()
}

// Capture waits up to maxDuration for the next line. A timeout yields an
// empty utterance. Once the reader is exhausted Capture returns
// ErrInputClosed.
func (c *Console) Capture(ctx context.Context, maxDuration time.Duration) (string, error) {
	c.once.Do(c.start)
	if c.prompt != nil {
		fmt.Fprint(c.prompt, "> ")
	}

	timer := time.NewTimer(maxDuration)
	defer timer.Stop()

	select {
	case line, ok := <-c.lines:
		if !ok {
			return "", c.closedErr()
		}
		return strings.TrimSpace(line), nil
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Console) closedErr() error {
	select {
	case err := <-c.errc:
		// keep the error available for later calls
		c.errc <- err
		return err
	default:
		return ErrInputClosed
	}
}

// Speaker prints assistant lines.
type Speaker struct {
	mu  sync.Mutex
	out io.Writer
	tag *color.Color
}

// NewSpeaker creates a speaker writing to w. Colour follows the terminal
// detection of fatih/color.
func NewSpeaker(w io.Writer) *Speaker {
	return &Speaker{out: w, tag: color.New(color.FgCyan, color.Bold)}
}

// Say implements dialogue.Speaker.
func (s *Speaker) Say(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.tag.Fprint(s.out, "Assistant: "); err != nil {
		return err
	}
	_, err := fmt.Fprintln(s.out, text)
	return err
}

// Func adapts a function into a speaker.
type Func func(ctx context.Context, text string) error

// Say implements dialogue.Speaker.
func (f Func) Say(ctx context.Context, text string) error {
	return f(ctx, text)
}
