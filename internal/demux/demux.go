// Package demux splits the modem byte stream into lines and separates AT
// command response blocks from unsolicited positioning output.
package demux

import (
	"strings"

	"github.com/dumacp/go-a9g/internal/atcmd"
	"github.com/dumacp/go-logs/pkg/logs"
)

// MaxLineLength bounds the partial line kept between chunks. Longer input
// without a delimiter (wrong baud rate, line noise) is dropped.
const MaxLineLength = 4096

// Handler receives the routed lines.
type Handler interface {
	// Outstanding reports whether line is the echo of a tracked command.
	Outstanding(line string) bool
	// Response delivers a complete block: the command echo and the lines
	// that followed it up to and including the terminal status line.
	Response(command string, lines []string)
	// Unsolicited receives every line that is not part of a response block.
	Unsolicited(line string)
	// Raw receives every line observed, before routing.
	Raw(line string)
}

type block struct {
	command string
	lines   []string
}

// Demux keeps the partial trailing line between chunks and the response
// block currently open.
type Demux struct {
	delimiter string
	marker    string
	handler   Handler
	partial   []byte
	block     *block
}

// New creates a Demux. marker identifies continuous positioning output lines,
// which are never taken as command echoes or response lines.
func New(delimiter, marker string, handler Handler) *Demux {
	if len(delimiter) <= 0 {
		delimiter = "\r\n"
	}
	return &Demux{
		delimiter: delimiter,
		marker:    marker,
		handler:   handler,
	}
}

// Write processes a chunk of bytes. Bytes after the last delimiter are kept
// until the next chunk completes the line.
func (d *Demux) Write(chunk []byte) (int, error) {
	d.partial = append(d.partial, chunk...)
	for {
		data := string(d.partial)
		i := strings.Index(data, d.delimiter)
		if i < 0 {
			break
		}
		line := data[:i]
		d.partial = d.partial[i+len(d.delimiter):]
		d.Line(line)
	}
	if len(d.partial) > MaxLineLength {
		logs.LogWarn.Printf("line without delimiter exceeds %d bytes, dropped", MaxLineLength)
		d.partial = nil
	}
	if len(d.partial) == 0 {
		d.partial = nil
	}
	return len(chunk), nil
}

// Line routes a single complete line.
func (d *Demux) Line(line string) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) <= 0 {
		return
	}
	d.handler.Raw(line)

	if d.positioning(trimmed) {
		d.handler.Unsolicited(line)
		return
	}
	if d.handler.Outstanding(trimmed) {
		d.block = &block{command: trimmed}
		return
	}
	if d.block != nil {
		d.block.lines = append(d.block.lines, trimmed)
		if atcmd.IsTerminal(trimmed) {
			b := d.block
			d.block = nil
			d.handler.Response(b.command, b.lines)
		}
		return
	}
	d.handler.Unsolicited(line)
}

// Pending returns the command whose block is open, if any.
func (d *Demux) Pending() (string, bool) {
	if d.block == nil {
		return "", false
	}
	return d.block.command, true
}

// Reset abandons the open block and the partial line, as at end of stream.
func (d *Demux) Reset() {
	d.block = nil
	d.partial = nil
}

func (d *Demux) positioning(line string) bool {
	if len(d.marker) > 0 && strings.Contains(line, d.marker) {
		return true
	}
	return strings.HasPrefix(line, "$")
}
