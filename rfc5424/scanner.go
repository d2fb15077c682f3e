package rfc5424

import (
	"fmt"
	"strings"
)

const (
	sp       = ' '
	nilValue = '-'
)

// bom is the UTF-8 byte order mark that may introduce MSG.
const bom = "\xEF\xBB\xBF"

// scanner walks a single line byte by byte. It holds no state besides
// the cursor; alternation is decided by the grammar through peek.
type scanner struct {
	buf string
	pos int
}

func newScanner(line string) *scanner {
	return &scanner{buf: line}
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.buf)
}

// peek returns the byte at the cursor without consuming it.
func (s *scanner) peek() (byte, bool) {
	if s.eof() {
		return 0, false
	}
	return s.buf[s.pos], true
}

// peekAt returns the byte n positions past the cursor.
func (s *scanner) peekAt(n int) (byte, bool) {
	if s.pos+n >= len(s.buf) {
		return 0, false
	}
	return s.buf[s.pos+n], true
}

func (s *scanner) next() (byte, error) {
	if s.eof() {
		return 0, s.errEOF()
	}
	b := s.buf[s.pos]
	s.pos++
	return b, nil
}

// expect consumes c or fails without moving the cursor.
func (s *scanner) expect(c byte) error {
	b, ok := s.peek()
	if !ok {
		return s.errEOF()
	}
	if b != c {
		return s.errf("expected %s, found %s", quoteByte(c), quoteByte(b))
	}
	s.pos++
	return nil
}

// digits consumes exactly n ASCII digits.
func (s *scanner) digits(n int) (string, error) {
	start := s.pos
	for i := 0; i < n; i++ {
		b, ok := s.peek()
		if !ok {
			return "", s.errEOF()
		}
		if !isDigit(b) {
			return "", s.errf("expected digit, found %s", quoteByte(b))
		}
		s.pos++
	}
	return s.buf[start:s.pos], nil
}

// token consumes between 1 and max bytes of the given class. It stops on
// SP, on end of input, or at any byte listed in stop. Any other byte
// outside the class is an error.
func (s *scanner) token(max int, class func(byte) bool, stop string) (string, error) {
	start := s.pos
	for !s.eof() {
		b := s.buf[s.pos]
		if b == sp || strings.IndexByte(stop, b) >= 0 {
			break
		}
		if !class(b) {
			return "", s.errf("disallowed character %s", quoteByte(b))
		}
		if s.pos-start == max {
			return "", s.errf("token longer than %d characters", max)
		}
		s.pos++
	}
	if s.pos == start {
		if s.eof() {
			return "", s.errEOF()
		}
		return "", s.errf("expected at least one character, found %s", quoteByte(s.buf[s.pos]))
	}
	return s.buf[start:s.pos], nil
}

// hasBOM reports whether the remaining input starts with a UTF-8 BOM.
func (s *scanner) hasBOM() bool {
	return len(s.buf)-s.pos >= len(bom) && s.buf[s.pos:s.pos+len(bom)] == bom
}

// rest consumes and returns everything after the cursor.
func (s *scanner) rest() string {
	r := s.buf[s.pos:]
	s.pos = len(s.buf)
	return r
}

func (s *scanner) skip(n int) {
	s.pos += n
	if s.pos > len(s.buf) {
		s.pos = len(s.buf)
	}
}

func (s *scanner) errEOF() *ScanError {
	return &ScanError{Offset: s.pos, Reason: "unexpected end of input"}
}

func (s *scanner) errf(format string, args ...interface{}) *ScanError {
	return &ScanError{Offset: s.pos, Reason: fmt.Sprintf(format, args...)}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isNonZeroDigit(b byte) bool {
	return b >= '1' && b <= '9'
}

// isPrintUSASCII matches PRINTUSASCII, %d33-126.
func isPrintUSASCII(b byte) bool {
	return b >= 33 && b <= 126
}

// isSDName matches the SD-NAME class: PRINTUSASCII except '=', SP, ']'
// and '"'.
func isSDName(b byte) bool {
	return isPrintUSASCII(b) && b != '=' && b != ']' && b != '"'
}

// trim removes leading and trailing runes at or below U+0020. Unicode
// spaces above that are kept.
func trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool { return r <= ' ' })
}

func quoteByte(b byte) string {
	if isPrintUSASCII(b) {
		return fmt.Sprintf("'%c'", b)
	}
	return fmt.Sprintf("0x%02x", b)
}
