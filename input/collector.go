package input

import (
	"bufio"
	"crypto/tls"
	"expvar"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ekanite/syslog5424/rfc5424"
)

var sequenceNumber int64
var stats = expvar.NewMap("input")

func init() {
	sequenceNumber = time.Now().UnixNano()
}

const (
	msgBufSize = 64 * 1024
)

// Collector specifies the interface all network collectors must implement.
type Collector interface {
	Start(chan<- *Event) error
	Addr() net.Addr
	Close() error
}

// LineParser parses one delimited syslog line.
type LineParser interface {
	ParseLine(line string) (rfc5424.Record, error)
	Names() rfc5424.NameProvider
}

// TCPCollector represents a network collector that accepts TCP connections.
// Messages are newline delimited. A connection sending a line longer than
// rfc5424.MaxLineSize is closed.
type TCPCollector struct {
	iface     string      // Bind address
	parser    LineParser  // Parses every received line
	tlsConfig *tls.Config // Non-nil for TLS connections

	ln   net.Listener
	addr net.Addr

	mu     sync.Mutex
	conns  map[net.Conn]struct{} // Open connections
	closed bool
	wg     sync.WaitGroup

	Logger *log.Logger
}

// UDPCollector represents a network collector that accepts UDP packets,
// one message per packet.
type UDPCollector struct {
	addr   *net.UDPAddr
	parser LineParser
	conn   *net.UDPConn
	done   chan struct{} // Closed once the read loop exits

	Logger *log.Logger
}

// NewCollector returns a network collector of the specified type, that will bind
// to the given inteface on Start(). If config is non-nil, a secure Collector will
// be returned. Secure Collectors require the protocol be TCP.
func NewCollector(proto, iface string, parser LineParser, tlsConfig *tls.Config) Collector {
	if strings.ToLower(proto) == "tcp" {
		return &TCPCollector{
			iface:     iface,
			parser:    parser,
			tlsConfig: tlsConfig,
			conns:     make(map[net.Conn]struct{}),
			Logger:    log.New(os.Stderr, "[collector] ", log.LstdFlags),
		}
	} else if strings.ToLower(proto) == "udp" {
		addr, err := net.ResolveUDPAddr("udp", iface)
		if err != nil {
			return nil
		}
		return &UDPCollector{
			addr:   addr,
			parser: parser,
			Logger: log.New(os.Stderr, "[collector] ", log.LstdFlags),
		}
	}
	return nil
}

// Start instructs the TCPCollector to bind to the interface and accept connections.
func (s *TCPCollector) Start(c chan<- *Event) error {
	var ln net.Listener
	var err error
	if s.tlsConfig == nil {
		ln, err = net.Listen("tcp", s.iface)
	} else {
		ln, err = tls.Listen("tcp", s.iface, s.tlsConfig)
	}
	if err != nil {
		return err
	}
	s.ln = ln
	s.addr = ln.Addr()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Temporary() {
					continue
				}
				return
			}
			if !s.track(conn) {
				conn.Close()
				return
			}
			go s.handleConnection(conn, c)
		}
	}()
	return nil
}

// track registers conn as open. It returns false once the collector is closed.
func (s *TCPCollector) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *TCPCollector) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *TCPCollector) handleConnection(conn net.Conn, c chan<- *Event) {
	stats.Add("tcpConnections", 1)
	defer func() {
		stats.Add("tcpConnections", -1)
		conn.Close()
		s.untrack(conn)
		s.wg.Done()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, msgBufSize), rfc5424.MaxLineSize)
	for scanner.Scan() {
		stats.Add("tcpBytesRead", int64(len(scanner.Bytes())))
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if e := newEvent(s.parser, s.Logger, line, conn.RemoteAddr().String()); e != nil {
			stats.Add("tcpEventsRx", 1)
			c <- e
		}
	}

	switch err := scanner.Err(); err {
	case nil:
		stats.Add("tcpConnReadEOF", 1)
	case bufio.ErrTooLong:
		stats.Add("tcpLineTooLong", 1)
		s.Logger.Printf("closing connection from %s: line exceeds %d bytes", conn.RemoteAddr(), rfc5424.MaxLineSize)
	default:
		stats.Add("tcpConnReadError", 1)
	}
}

// Addr returns the net.Addr to which the TCP collector is bound.
func (s *TCPCollector) Addr() net.Addr {
	return s.addr
}

// Close stops the collector accepting new connections and closes every
// open connection. It returns once no connection will send further events,
// so the event channel must still be drained while Close runs.
func (s *TCPCollector) Close() error {
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()

	s.mu.Lock()
	s.closed = true
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// Start instructs the UDPCollector to start reading packets from the interface.
func (s *UDPCollector) Start(c chan<- *Event) error {
	conn, err := net.ListenUDP("udp", s.addr)
	if err != nil {
		return err
	}
	s.conn = conn
	s.addr = conn.LocalAddr().(*net.UDPAddr)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		buf := make([]byte, msgBufSize)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Temporary() {
					continue
				}
				return
			}
			stats.Add("udpBytesRead", int64(n))
			line := strings.Trim(string(buf[:n]), "\r\n")
			if line == "" {
				continue
			}
			if e := newEvent(s.parser, s.Logger, line, addr.String()); e != nil {
				stats.Add("udpEventsRx", 1)
				c <- e
			}
		}
	}()
	return nil
}

// Addr returns the net.Addr to which the UDP collector is bound.
func (s *UDPCollector) Addr() net.Addr {
	return s.addr
}

// Close stops the collector reading packets, and returns once the read
// loop has exited.
func (s *UDPCollector) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	<-s.done
	return err
}

// newEvent parses line into an Event. Lines that fail to parse are logged
// and counted, and nil is returned.
func newEvent(p LineParser, logger *log.Logger, line, source string) *Event {
	r, err := p.ParseLine(line)
	if err != nil {
		stats.Add("parseErrors", 1)
		logger.Printf("dropping line from %s: %s", source, err.Error())
		return nil
	}
	ts, _ := r.Get(p.Names().Timestamp())
	return &Event{
		Text:          line,
		Record:        r,
		Timestamp:     ts,
		ReceptionTime: time.Now().UTC(),
		Sequence:      atomic.AddInt64(&sequenceNumber, 1),
		SourceIP:      source,
	}
}
