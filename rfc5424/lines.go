package rfc5424

import (
	"bufio"
	"io"
	"strings"
)

// MaxLineSize is the longest line ParseLines will accept.
const MaxLineSize = 1 << 20

// ParseLines parses every newline-terminated line read from r. Parsing
// stops at the first failing line, which is reported as a *LineError;
// records parsed before it are returned. r is not closed.
func (p *Parser) ParseLines(r io.Reader) ([]Record, error) {
	var records []Record
	err := p.ParseLinesFunc(r, func(rec Record) error {
		records = append(records, rec)
		return nil
	})
	return records, err
}

// ParseLinesFunc parses every line read from r and passes each record to
// fn. An error from fn stops the iteration and is returned unchanged.
func (p *Parser) ParseLinesFunc(r io.Reader, fn func(Record) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	n := 0
	for scanner.Scan() {
		n++
		rec, err := p.ParseLine(strings.TrimRight(scanner.Text(), "\r"))
		if err != nil {
			return &LineError{Line: n, Err: err}
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return scanner.Err()
}
