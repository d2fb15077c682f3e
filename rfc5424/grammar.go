package rfc5424

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Field length limits from RFC 5424 section 6.
const (
	maxHostName  = 255
	maxAppName   = 48
	maxProcID    = 128
	maxMsgID     = 32
	maxSDName    = 32
	maxPriVal    = 191
	maxSecFrac   = 6
	priValDigits = 3
	versionLen   = 3
)

// engine drives one parse of one line. Each method implements a
// production of the RFC 5424 ABNF and writes to the builder only when
// the production yields a value.
type engine struct {
	s         *scanner
	b         *builder
	names     NameProvider
	priNames  PriorityNameProvider
	nilPolicy NilPolicy
}

// fail wraps err as a ParseError for rule. Offsets come from the scan
// error when there is one, so they point at the offending byte.
func (e *engine) fail(rule string, err error) error {
	offset := e.s.pos
	if se, ok := err.(*ScanError); ok {
		offset = se.Offset
	}
	return &ParseError{Rule: rule, Offset: offset, Err: err}
}

// nilAhead reports whether the cursor sits on a NILVALUE, i.e. a '-'
// followed by SP or end of input.
func (e *engine) nilAhead() bool {
	b, ok := e.s.peek()
	if !ok || b != nilValue {
		return false
	}
	n, ok := e.s.peekAt(1)
	return !ok || n == sp
}

func (e *engine) sp(rule string) error {
	if err := e.s.expect(sp); err != nil {
		return e.fail(rule, err)
	}
	return nil
}

// syslogMsg is SYSLOG-MSG = HEADER SP STRUCTURED-DATA [SP MSG].
func (e *engine) syslogMsg() error {
	if err := e.header(); err != nil {
		return err
	}
	if err := e.sp("HEADER"); err != nil {
		return err
	}
	if err := e.structuredData(); err != nil {
		return err
	}
	if e.s.eof() {
		return nil
	}
	if err := e.sp("SYSLOG-MSG"); err != nil {
		return err
	}
	return e.msg()
}

// header is PRI VERSION SP TIMESTAMP SP HOSTNAME SP APP-NAME SP PROCID SP MSGID.
func (e *engine) header() error {
	if err := e.pri(); err != nil {
		return err
	}
	if err := e.version(); err != nil {
		return err
	}
	if err := e.sp("VERSION"); err != nil {
		return err
	}
	if err := e.timestamp(); err != nil {
		return err
	}

	fields := []struct {
		rule string
		max  int
		key  string
	}{
		{"HOSTNAME", maxHostName, e.names.HostName()},
		{"APP-NAME", maxAppName, e.names.AppName()},
		{"PROCID", maxProcID, e.names.ProcessID()},
		{"MSGID", maxMsgID, e.names.MessageID()},
	}
	for _, f := range fields {
		if err := e.sp(f.rule); err != nil {
			return err
		}
		if err := e.field(f.rule, f.max, f.key); err != nil {
			return err
		}
	}
	return nil
}

// pri is "<" PRIVAL ">" where PRIVAL is 1*3DIGIT in the range 0-191.
func (e *engine) pri() error {
	if err := e.s.expect('<'); err != nil {
		return e.fail("PRI", err)
	}
	start := e.s.pos
	v, err := e.s.token(priValDigits, isDigit, ">")
	if err != nil {
		return e.fail("PRI", err)
	}
	if err := e.s.expect('>'); err != nil {
		return e.fail("PRI", err)
	}
	n, _ := strconv.Atoi(v)
	if n > maxPriVal {
		return &ParseError{Rule: "PRI", Offset: start, Err: &ScanError{
			Offset: start,
			Reason: fmt.Sprintf("priority %s out of range 0-%d", v, maxPriVal),
		}}
	}

	e.b.put(e.names.Priority(), v)
	if e.priNames != nil {
		e.b.put(e.priNames.Facility(), strconv.Itoa(n/8))
		e.b.put(e.priNames.Severity(), strconv.Itoa(n%8))
	}
	return nil
}

// version is NONZERO-DIGIT 0*2DIGIT.
func (e *engine) version() error {
	b, ok := e.s.peek()
	if !ok {
		return e.fail("VERSION", e.s.errEOF())
	}
	if !isNonZeroDigit(b) {
		return e.fail("VERSION", e.s.errf("expected non-zero digit, found %s", quoteByte(b)))
	}
	v, err := e.s.token(versionLen, isDigit, "")
	if err != nil {
		return e.fail("VERSION", err)
	}
	e.b.put(e.names.Version(), v)
	return nil
}

// timestamp is NILVALUE / FULL-DATE "T" FULL-TIME.
func (e *engine) timestamp() error {
	key := e.names.Timestamp()
	if e.nilAhead() {
		e.s.skip(1)
		e.nilPolicy.apply(e.b, key)
		return nil
	}

	start := e.s.pos
	if err := e.fullDate(); err != nil {
		return e.fail("FULL-DATE", err)
	}
	date := e.s.buf[start:e.s.pos]
	if err := e.s.expect('T'); err != nil {
		return e.fail("TIMESTAMP", err)
	}
	start = e.s.pos
	if err := e.fullTime(); err != nil {
		return e.fail("FULL-TIME", err)
	}
	e.b.put(key, date+"T"+e.s.buf[start:e.s.pos])
	return nil
}

// fullDate is DATE-FULLYEAR "-" DATE-MONTH "-" DATE-MDAY.
func (e *engine) fullDate() error {
	if _, err := e.s.digits(4); err != nil {
		return err
	}
	if err := e.s.expect('-'); err != nil {
		return err
	}
	if err := e.ranged(1, 12, "month"); err != nil {
		return err
	}
	if err := e.s.expect('-'); err != nil {
		return err
	}
	return e.ranged(1, 31, "day")
}

// fullTime is PARTIAL-TIME TIME-OFFSET, with PARTIAL-TIME being
// TIME-HOUR ":" TIME-MINUTE ":" TIME-SECOND [TIME-SECFRAC].
func (e *engine) fullTime() error {
	if err := e.ranged(0, 23, "hour"); err != nil {
		return err
	}
	if err := e.s.expect(':'); err != nil {
		return err
	}
	if err := e.ranged(0, 59, "minute"); err != nil {
		return err
	}
	if err := e.s.expect(':'); err != nil {
		return err
	}
	if err := e.ranged(0, 59, "second"); err != nil {
		return err
	}
	if b, ok := e.s.peek(); ok && b == '.' {
		e.s.skip(1)
		if _, err := e.s.token(maxSecFrac, isDigit, "Z+-"); err != nil {
			return err
		}
	}
	return e.timeOffset()
}

// timeOffset is "Z" / TIME-NUMOFFSET.
func (e *engine) timeOffset() error {
	b, err := e.s.next()
	if err != nil {
		return err
	}
	switch b {
	case 'Z':
		return nil
	case '+', '-':
	default:
		e.s.pos--
		return e.s.errf("expected time offset, found %s", quoteByte(b))
	}
	if err := e.ranged(0, 23, "offset hour"); err != nil {
		return err
	}
	if err := e.s.expect(':'); err != nil {
		return err
	}
	return e.ranged(0, 59, "offset minute")
}

// ranged consumes two digits whose value must lie in [min, max].
func (e *engine) ranged(min, max int, what string) error {
	start := e.s.pos
	v, err := e.s.digits(2)
	if err != nil {
		return err
	}
	n, _ := strconv.Atoi(v)
	if n < min || n > max {
		return &ScanError{Offset: start, Reason: fmt.Sprintf("%s %s out of range %02d-%02d", what, v, min, max)}
	}
	return nil
}

// field is NILVALUE / 1*max PRINTUSASCII, stored under key.
func (e *engine) field(rule string, max int, key string) error {
	if e.nilAhead() {
		e.s.skip(1)
		e.nilPolicy.apply(e.b, key)
		return nil
	}
	v, err := e.s.token(max, isPrintUSASCII, "")
	if err != nil {
		return e.fail(rule, err)
	}
	e.b.put(key, v)
	return nil
}

// structuredData is NILVALUE / 1*SD-ELEMENT. A NIL section adds nothing
// to the record whatever the nil policy.
func (e *engine) structuredData() error {
	if e.nilAhead() {
		e.s.skip(1)
		return nil
	}
	if b, ok := e.s.peek(); !ok || b != '[' {
		return e.fail("STRUCTURED-DATA", e.s.expect('['))
	}
	for {
		b, ok := e.s.peek()
		if !ok || b != '[' {
			return nil
		}
		if err := e.sdElement(); err != nil {
			return err
		}
	}
}

// sdElement is "[" SD-ID *(SP SD-PARAM) "]".
func (e *engine) sdElement() error {
	e.s.skip(1)
	id, err := e.s.token(maxSDName, isSDName, "]")
	if err != nil {
		return e.fail("SD-ID", err)
	}

	var params []param
	for {
		b, ok := e.s.peek()
		if !ok {
			return e.fail("SD-ELEMENT", e.s.errEOF())
		}
		if b == ']' {
			e.s.skip(1)
			break
		}
		if err := e.sp("SD-ELEMENT"); err != nil {
			return err
		}
		p, err := e.sdParam()
		if err != nil {
			return err
		}
		params = append(params, p)
	}

	flattenElement(e.b, e.names, id, params)
	return nil
}

// sdParam is PARAM-NAME "=" %d34 PARAM-VALUE %d34.
func (e *engine) sdParam() (param, error) {
	name, err := e.s.token(maxSDName, isSDName, "=")
	if err != nil {
		return param{}, e.fail("PARAM-NAME", err)
	}
	if err := e.s.expect('='); err != nil {
		return param{}, e.fail("SD-PARAM", err)
	}
	if err := e.s.expect('"'); err != nil {
		return param{}, e.fail("SD-PARAM", err)
	}
	value, err := e.paramValue()
	if err != nil {
		return param{}, e.fail("PARAM-VALUE", err)
	}
	return param{name: name, value: value}, nil
}

// paramValue reads a UTF-8 PARAM-VALUE up to and including the closing
// quote. '"', '\' and ']' must be escaped; the escapes are decoded. A
// backslash before any other character is kept as is.
func (e *engine) paramValue() (string, error) {
	var sb strings.Builder
	for {
		start := e.s.pos
		b, err := e.s.next()
		if err != nil {
			return "", err
		}
		switch b {
		case '"':
			return sb.String(), nil
		case ']':
			e.s.pos = start
			return "", e.s.errf("unescaped ']' in param value")
		case '\\':
			c, ok := e.s.peek()
			if !ok {
				return "", e.s.errEOF()
			}
			if c == '"' || c == '\\' || c == ']' {
				e.s.skip(1)
				sb.WriteByte(c)
			} else {
				sb.WriteByte(b)
			}
		default:
			if b < utf8.RuneSelf {
				sb.WriteByte(b)
				continue
			}
			r, size := utf8.DecodeRuneInString(e.s.buf[start:])
			if r == utf8.RuneError && size <= 1 {
				e.s.pos = start
				return "", e.s.errf("invalid UTF-8 in param value")
			}
			sb.WriteString(e.s.buf[start : start+size])
			e.s.pos = start + size
		}
	}
}

// msg is MSG-ANY / MSG-UTF8. A leading BOM is stripped and the remainder
// must then be valid UTF-8. The stored message has leading and trailing
// control characters and spaces removed.
func (e *engine) msg() error {
	if e.s.hasBOM() {
		e.s.skip(len(bom))
		start := e.s.pos
		text := e.s.rest()
		if !utf8.ValidString(text) {
			return e.fail("MSG", &ScanError{Offset: start, Reason: "invalid UTF-8 after BOM"})
		}
		e.b.put(e.names.Message(), trim(text))
		return nil
	}
	e.b.put(e.names.Message(), trim(e.s.rest()))
	return nil
}
