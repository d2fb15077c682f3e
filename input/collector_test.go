package input

import (
	"expvar"
	"io/ioutil"
	"log"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ekanite/syslog5424/rfc5424"
)

func newTestParser(t *testing.T) *rfc5424.Parser {
	p, err := rfc5424.NewParser(rfc5424.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create parser: %s", err.Error())
	}
	return p
}

func receive(t *testing.T, c <-chan *Event) *Event {
	select {
	case e := <-c:
		return e
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return nil
}

func Test_NewCollector(t *testing.T) {
	p := newTestParser(t)
	if NewCollector("tcp", "localhost:0", p, nil) == nil {
		t.Errorf("failed to create TCP collector")
	}
	if NewCollector("UDP", "localhost:0", p, nil) == nil {
		t.Errorf("failed to create UDP collector")
	}
	if NewCollector("sctp", "localhost:0", p, nil) != nil {
		t.Errorf("created collector for unknown protocol")
	}
}

func Test_TCPCollector(t *testing.T) {
	collector := NewCollector("tcp", "localhost:0", newTestParser(t), nil)
	collector.(*TCPCollector).Logger = log.New(ioutil.Discard, "", 0)
	c := make(chan *Event, 10)
	if err := collector.Start(c); err != nil {
		t.Fatalf("failed to start TCP collector: %s", err.Error())
	}
	defer collector.Close()

	conn, err := net.Dial("tcp", collector.Addr().String())
	if err != nil {
		t.Fatalf("failed to connect to TCP collector: %s", err.Error())
	}
	lines := "<34>1 2003-10-11T22:14:15.003Z mymachine.example.com su - ID47 - first\r\n" +
		"not syslog at all\n" +
		"<165>1 - host app - - [id a=\"b\"] second"
	if _, err := conn.Write([]byte(lines)); err != nil {
		t.Fatalf("failed to write to TCP collector: %s", err.Error())
	}
	conn.Close()

	first := receive(t, c)
	if v, _ := first.Record.Get("syslog.message"); v != "first" {
		t.Errorf("first event message %q", v)
	}
	if first.Timestamp != "2003-10-11T22:14:15.003Z" {
		t.Errorf("first event timestamp %q", first.Timestamp)
	}
	if first.Text != "<34>1 2003-10-11T22:14:15.003Z mymachine.example.com su - ID47 - first" {
		t.Errorf("first event text %q", first.Text)
	}

	second := receive(t, c)
	if v, _ := second.Record.Get("syslog.structuredData.id.a"); v != "b" {
		t.Errorf("second event structured data %q", v)
	}
	if second.Sequence <= first.Sequence {
		t.Errorf("sequence numbers not increasing: %d, %d", first.Sequence, second.Sequence)
	}
	if second.Timestamp != "" {
		t.Errorf("second event timestamp %q, expected none", second.Timestamp)
	}
}

func Test_UDPCollector(t *testing.T) {
	collector := NewCollector("udp", "localhost:0", newTestParser(t), nil)
	collector.(*UDPCollector).Logger = log.New(ioutil.Discard, "", 0)
	c := make(chan *Event, 10)
	if err := collector.Start(c); err != nil {
		t.Fatalf("failed to start UDP collector: %s", err.Error())
	}
	defer collector.Close()

	conn, err := net.Dial("udp", collector.Addr().String())
	if err != nil {
		t.Fatalf("failed to connect to UDP collector: %s", err.Error())
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("<13>1 - host app 42 - - over udp\n")); err != nil {
		t.Fatalf("failed to write to UDP collector: %s", err.Error())
	}

	e := receive(t, c)
	if v, _ := e.Record.Get("syslog.header.procId"); v != "42" {
		t.Errorf("event procId %q", v)
	}
	if e.Text != "<13>1 - host app 42 - - over udp" {
		t.Errorf("event text %q", e.Text)
	}
}

func counter(name string) int64 {
	if v, ok := stats.Get(name).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

// waitClosed fails the test unless the remote end closes conn.
func waitClosed(t *testing.T, conn net.Conn) {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 16)
	for {
		_, err := conn.Read(buf)
		if err == nil {
			continue
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			t.Fatalf("connection was not closed by collector")
		}
		return
	}
}

func Test_TCPCollectorLineTooLong(t *testing.T) {
	collector := NewCollector("tcp", "localhost:0", newTestParser(t), nil)
	collector.(*TCPCollector).Logger = log.New(ioutil.Discard, "", 0)
	c := make(chan *Event, 10)
	if err := collector.Start(c); err != nil {
		t.Fatalf("failed to start TCP collector: %s", err.Error())
	}
	defer collector.Close()

	conn, err := net.Dial("tcp", collector.Addr().String())
	if err != nil {
		t.Fatalf("failed to connect to TCP collector: %s", err.Error())
	}
	defer conn.Close()

	before := counter("tcpLineTooLong")
	go func() {
		// Writes may fail once the collector drops the connection.
		conn.Write([]byte("<13>1 - host app - - - fits\n"))
		conn.Write([]byte(strings.Repeat("x", rfc5424.MaxLineSize+1)))
		conn.Write([]byte("\n<13>1 - host app - - - after\n"))
	}()

	e := receive(t, c)
	if v, _ := e.Record.Get("syslog.message"); v != "fits" {
		t.Fatalf("event message %q, expected fits", v)
	}
	waitClosed(t, conn)
	if n := counter("tcpLineTooLong"); n != before+1 {
		t.Fatalf("over-long line count %d, expected %d", n, before+1)
	}
	if len(c) != 0 {
		t.Fatalf("received %d events after over-long line", len(c))
	}
}

func Test_TCPCollectorCloseConnections(t *testing.T) {
	collector := NewCollector("tcp", "localhost:0", newTestParser(t), nil)
	collector.(*TCPCollector).Logger = log.New(ioutil.Discard, "", 0)
	c := make(chan *Event, 10)
	if err := collector.Start(c); err != nil {
		t.Fatalf("failed to start TCP collector: %s", err.Error())
	}

	conn, err := net.Dial("tcp", collector.Addr().String())
	if err != nil {
		t.Fatalf("failed to connect to TCP collector: %s", err.Error())
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("<13>1 - host app - - - open\n")); err != nil {
		t.Fatalf("failed to write to TCP collector: %s", err.Error())
	}
	receive(t, c)

	closed := make(chan error)
	go func() { closed <- collector.Close() }()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out closing collector with open connection")
	}
	waitClosed(t, conn)

	if _, err := net.Dial("tcp", collector.Addr().String()); err == nil {
		t.Fatalf("collector still accepting connections after close")
	}
}
