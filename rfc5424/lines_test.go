package rfc5424

import (
	"errors"
	"strings"
	"testing"
)

func Test_ParseLines(t *testing.T) {
	p := mustParser(t, DefaultConfig())
	input := "<34>1 2003-10-11T22:14:15.003Z mymachine.example.com su - ID47 - first\r\n" +
		"<165>1 2003-08-24T05:14:15.000003-07:00 192.0.2.1 myproc 8710 - - second\n" +
		"<1>1 - - - - - [a b=\"c\"] third"

	records, err := p.ParseLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("failed to parse lines: %s", err.Error())
	}
	expected := []string{"first", "second", "third"}
	if len(records) != len(expected) {
		t.Fatalf("got %d records, expected %d", len(records), len(expected))
	}
	for i, r := range records {
		if v, _ := r.Get("syslog.message"); v != expected[i] {
			t.Errorf("record %d: message %q, expected %q", i, v, expected[i])
		}
	}
}

func Test_ParseLinesFailure(t *testing.T) {
	p := mustParser(t, DefaultConfig())
	tests := []struct {
		name    string
		input   string
		line    int
		records int
		blank   bool
	}{
		{name: "bad second line", input: "<1>1 - - - - - -\n<1>x - - - - - -\n<1>1 - - - - - -\n", line: 2, records: 1},
		{name: "blank line", input: "<1>1 - - - - - -\n\n<1>1 - - - - - -", line: 2, records: 1, blank: true},
		{name: "bad first line", input: "nonsense", line: 1, records: 0},
	}

	for _, tt := range tests {
		records, err := p.ParseLines(strings.NewReader(tt.input))
		var le *LineError
		if !errors.As(err, &le) {
			t.Errorf("test %s: error %v is not a LineError", tt.name, err)
			continue
		}
		if le.Line != tt.line {
			t.Errorf("test %s: failed on line %d, expected %d", tt.name, le.Line, tt.line)
		}
		if len(records) != tt.records {
			t.Errorf("test %s: got %d records, expected %d", tt.name, len(records), tt.records)
		}
		if tt.blank != errors.Is(err, ErrInvalidArgument) {
			t.Errorf("test %s: unexpected error %v", tt.name, err)
		}
	}
}

func Test_ParseLinesFuncStops(t *testing.T) {
	p := mustParser(t, DefaultConfig())
	stop := errors.New("stop")
	n := 0
	err := p.ParseLinesFunc(strings.NewReader("<1>1 - - - - - -\n<2>1 - - - - - -\n"), func(Record) error {
		n++
		return stop
	})
	if err != stop || n != 1 {
		t.Fatalf("iteration did not stop, called %d times, err %v", n, err)
	}
}

func Test_ParseLinesEmpty(t *testing.T) {
	p := mustParser(t, DefaultConfig())
	records, err := p.ParseLines(strings.NewReader(""))
	if err != nil || len(records) != 0 {
		t.Fatalf("empty input returned %d records, err %v", len(records), err)
	}
}
