package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/ioutil"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ekanite/syslog5424"
	"github.com/ekanite/syslog5424/input"
	"github.com/ekanite/syslog5424/rfc5424"
)

const sdLine = `<165>1 2003-10-11T22:14:15.003Z mymachine.example.com evntslog - ID47 [exampleSDID@32473 iut="3" eventSource="Application"] An application event log entry...`

func mustParser(t *testing.T, c rfc5424.Config) *rfc5424.Parser {
	p, err := rfc5424.NewParser(c)
	if err != nil {
		t.Fatalf("failed to create parser: %s", err.Error())
	}
	return p
}

func Test_ParseStreamFlat(t *testing.T) {
	p := mustParser(t, rfc5424.DefaultConfig())
	var buf bytes.Buffer
	in := sdLine + "\n" + "<34>1 2003-10-11T22:14:15.003Z mymachine.example.com su - ID47 - 'su root' failed\n"
	if err := parseStream(p, strings.NewReader(in), &buf, false); err != nil {
		t.Fatalf("failed to parse stream: %s", err.Error())
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("wrong number of output lines, exp 2, got %d", len(lines))
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("output is not JSON: %s", err.Error())
	}
	if m["syslog.structuredData.exampleSDID@32473.iut"] != "3" {
		t.Errorf("flat structured data key missing from %s", lines[0])
	}
	if m["syslog.header.appName"] != "evntslog" {
		t.Errorf("app name missing from %s", lines[0])
	}
}

func Test_ParseStreamUnflatten(t *testing.T) {
	p := mustParser(t, rfc5424.DefaultConfig())
	var buf bytes.Buffer
	if err := parseStream(p, strings.NewReader(sdLine), &buf, true); err != nil {
		t.Fatalf("failed to parse stream: %s", err.Error())
	}

	var m struct {
		Message string                       `json:"syslog.message"`
		SD      map[string]map[string]string `json:"syslog.structuredData"`
		Flat    *string                      `json:"syslog.structuredData.exampleSDID@32473.iut"`
	}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("output is not JSON: %s", err.Error())
	}
	if m.Message != "An application event log entry..." {
		t.Errorf("wrong message, got %q", m.Message)
	}
	if m.SD["exampleSDID@32473"]["eventSource"] != "Application" {
		t.Errorf("nested structured data wrong, got %v", m.SD)
	}
	if m.Flat != nil {
		t.Error("flat structured data key present in unflattened output")
	}
}

func Test_ParseStreamError(t *testing.T) {
	p := mustParser(t, rfc5424.DefaultConfig())
	var buf bytes.Buffer
	in := sdLine + "\n" + "not syslog\n"
	err := parseStream(p, strings.NewReader(in), &buf, false)
	var le *rfc5424.LineError
	if !errors.As(err, &le) {
		t.Fatalf("expected line error, got %v", err)
	}
	if le.Line != 2 {
		t.Fatalf("wrong failing line, exp 2, got %d", le.Line)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Fatalf("expected the first line to be written, got %q", buf.String())
	}
}

func Test_ParseFiles(t *testing.T) {
	f, err := ioutil.TempFile("", "syslog5424_")
	if err != nil {
		t.Fatalf("failed to create temp file: %s", err.Error())
	}
	defer os.Remove(f.Name())
	f.WriteString(sdLine + "\r\n")
	f.Close()

	c := rfc5424.DefaultConfig()
	c.NilPolicy = rfc5424.DashNil
	p := mustParser(t, c)
	var buf bytes.Buffer
	if err := parseFiles(p, []string{f.Name()}, &buf, false); err != nil {
		t.Fatalf("failed to parse file: %s", err.Error())
	}
	if !strings.Contains(buf.String(), `"syslog.header.procId":"-"`) {
		t.Fatalf("dash nil policy not applied, got %s", buf.String())
	}

	if err := parseFiles(p, []string{f.Name() + ".missing"}, &buf, false); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func Test_SearchIndex(t *testing.T) {
	f, _ := ioutil.TempFile("", "syslog5424_")
	path := f.Name()
	f.Close()
	os.Remove(path)
	defer os.RemoveAll(path)

	index, err := syslog5424.OpenIndex(path)
	if err != nil {
		t.Fatalf("failed to open index: %s", err.Error())
	}
	defer index.Close()

	p := mustParser(t, rfc5424.DefaultConfig())
	r, err := p.ParseLine(sdLine)
	if err != nil {
		t.Fatalf("failed to parse line: %s", err.Error())
	}
	e := syslog5424.NewEvent(&input.Event{
		Text:          sdLine,
		Record:        r,
		ReceptionTime: time.Now().UTC(),
		Sequence:      1,
	}, p.Names())
	if err := index.IndexEvents([]*syslog5424.Event{e}); err != nil {
		t.Fatalf("failed to index event: %s", err.Error())
	}

	var buf bytes.Buffer
	if err := searchIndex(index, "application", &buf); err != nil {
		t.Fatalf("failed to search: %s", err.Error())
	}
	if buf.String() != sdLine+"\n" {
		t.Fatalf("wrong search output, got %q", buf.String())
	}
}
