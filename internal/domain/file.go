package domain

import (
	"fmt"
	"strings"
)

// LineScanner yields the raw lines of one container file. *bufio.Scanner
// satisfies it.
type LineScanner interface {
	Scan() bool
	Text() string
	Err() error
}

// LineStream is a LineScanner over an opened container file.
type LineStream interface {
	LineScanner
	Close() error
}

// FileOutcome summarizes the decoding of one container file.
type FileOutcome struct {
	Format  Format
	Lines   int  // lines read, including the failing one
	Records int  // records handed to the visitor
	Stopped bool // the visitor ended decoding early
	Err     error
}

// TruncatedAt returns the line at which decoding was abandoned, or 0 when
// the file decoded cleanly or the failure is not tied to a line.
func (o FileOutcome) TruncatedAt() int {
	if de, ok := o.Err.(*DecodeError); ok {
		return de.Line
	}
	return 0
}

// DecodeFile decodes every line from sc in order, handing each record to
// visit with its 1-based line number and raw text. Decoding stops when visit returns false
// or at the first decode error; records already visited stay valid.
func DecodeFile(sc LineScanner, t DatasetType, visit func(line int, raw string, r Record) bool) FileOutcome {
	dec := NewLineDecoder(t)
	var out FileOutcome
	dataLines := 0

	for sc.Scan() {
		out.Lines++
		line := sc.Text()
		if strings.TrimSpace(line) != "" {
			dataLines++
		}
		rec, ok, err := dec.Decode(line)
		if err != nil {
			out.Err = err
			break
		}
		if !ok {
			continue
		}
		out.Records++
		if !visit(dec.Line(), line, rec) {
			out.Stopped = true
			break
		}
	}
	out.Format = dec.Format()

	if out.Err == nil && !out.Stopped {
		if err := sc.Err(); err != nil {
			out.Err = fmt.Errorf("read line %d: %w", out.Lines+1, err)
		} else if dataLines == 0 {
			out.Err = &DecodeError{Kind: ErrEmptyContainerFile}
		}
	}
	return out
}
