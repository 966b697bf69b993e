package render

import (
	"errors"
	"fmt"
	"io"
)

// Sink displays a full set of records, replacing whatever it showed before.
type Sink interface {
	Render(records []Record) error
}

// MultiSink renders to each sink in order and joins their errors.
type MultiSink []Sink

func (m MultiSink) Render(records []Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Render(records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\033[H\033[2J"

// ConsoleSink writes records as text.
type ConsoleSink struct {
	W     io.Writer
	Clear bool
}

func NewConsoleSink(w io.Writer, clear bool) *ConsoleSink {
	return &ConsoleSink{W: w, Clear: clear}
}

func (c *ConsoleSink) Render(records []Record) error {
	out := Text(records)
	if c.Clear {
		out = clearScreen + out
	}
	if _, err := io.WriteString(c.W, out); err != nil {
		return fmt.Errorf("console render: %w", err)
	}
	return nil
}
