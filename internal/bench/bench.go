// Package bench implements the benchmarking harness the CLI's --timing flag
// drives: it wraps a run's I/O sinks to count bytes moved, times the run,
// and tags each result with a UUID so repeated invocations captured in logs
// can be told apart.
package bench

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Result is one completed, timed run.
type Result struct {
	ID       string
	Mode     string
	Elapsed  time.Duration
	BytesIn  int64
	BytesOut int64
}

// String renders a Result the way the CLI prints it under --timing:
// human-friendly duration and byte counts rather than raw numbers.
func (r Result) String() string {
	return fmt.Sprintf("[%s] mode=%s elapsed=%s in=%s out=%s",
		r.ID, r.Mode, r.Elapsed, humanize.Bytes(uint64(r.BytesIn)), humanize.Bytes(uint64(r.BytesOut)))
}

// CountingReader wraps an io.Reader, tallying every byte read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}

// CountingWriter wraps an io.Writer, tallying every byte written through it.
type CountingWriter struct {
	W io.Writer
	N int64
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.N += int64(n)
	return n, err
}

// Tracker measures one run: wrap the run's I/O sinks with In/Out, invoke the
// run, then call Finish to obtain the Result.
type Tracker struct {
	Mode  string
	In    *CountingReader
	Out   *CountingWriter
	start time.Time
}

// Track begins timing a run over the given sinks.
func Track(mode string, in io.Reader, out io.Writer) *Tracker {
	return &Tracker{
		Mode:  mode,
		In:    &CountingReader{R: in},
		Out:   &CountingWriter{W: out},
		start: nowFunc(),
	}
}

// Finish stops the clock and produces the Result, tagging it with a fresh
// UUID for correlation across repeated --timing invocations.
func (t *Tracker) Finish() Result {
	return Result{
		ID:       uuid.New().String(),
		Mode:     t.Mode,
		Elapsed:  nowFunc().Sub(t.start),
		BytesIn:  t.In.N,
		BytesOut: t.Out.N,
	}
}

// nowFunc is overridden by tests so elapsed-time assertions are deterministic.
var nowFunc = time.Now
