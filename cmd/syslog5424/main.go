package main

import (
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"expvar"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ekanite/syslog5424"
	"github.com/ekanite/syslog5424/input"
	"github.com/ekanite/syslog5424/rfc5424"
	"github.com/ekanite/syslog5424/status"
)

var (
	stats = expvar.NewMap("syslog5424")
)

// Flag set
var fs *flag.FlagSet

const (
	DefaultDataDir         = "/var/opt/syslog5424"
	DefaultBatchSize       = syslog5424.DefaultBatchSize
	DefaultBatchTimeout    = 1000
	DefaultIndexMaxPending = syslog5424.DefaultIndexMaxPending
	DefaultDiagsIface      = "localhost:9951"
	DefaultNilPolicy       = "omit"
)

func main() {
	fs = flag.NewFlagSet("", flag.ExitOnError)
	var (
		nilPolicy       = fs.String("nil", DefaultNilPolicy, "How NIL header fields are recorded: omit, null or dash.")
		splitPri        = fs.Bool("split-pri", false, "Also record facility and severity decoded from PRI.")
		unflatten       = fs.Bool("unflatten", false, "Print structured data as a nested object rather than flat keys.")
		datadir         = fs.String("datadir", DefaultDataDir, "Set index data directory.")
		tcpIface        = fs.String("tcp", "", "Syslog server TCP bind address in the form host:port. If not set, not started.")
		udpIface        = fs.String("udp", "", "Syslog server UDP bind address in the form host:port. If not set, not started.")
		caPemPath       = fs.String("pem", "", "path to CA PEM file for TLS-enabled TCP server. If not set, TLS not activated")
		caKeyPath       = fs.String("key", "", "path to CA key file for TLS-enabled TCP server. If not set, TLS not activated")
		diagIface       = fs.String("diag", DefaultDiagsIface, "expvar and pprof bind address in the form host:port. If not set, not started.")
		batchSize       = fs.Int("batchsize", DefaultBatchSize, "Indexing batch size.")
		batchTimeout    = fs.Int("batchtime", DefaultBatchTimeout, "Indexing batch timeout, in milliseconds.")
		indexMaxPending = fs.Int("maxpending", DefaultIndexMaxPending, "Maximum pending index events.")
		search          = fs.String("search", "", "Search the index with the given query and print matching lines.")
	)
	fs.Usage = printHelp
	fs.Parse(os.Args[1:])

	log.SetFlags(log.LstdFlags)
	log.SetPrefix("[syslog5424] ")

	policy, err := rfc5424.ParseNilPolicy(*nilPolicy)
	if err != nil {
		log.Fatalf("invalid nil policy: %s", err.Error())
	}
	config := rfc5424.DefaultConfig()
	config.NilPolicy = policy
	config.SplitPriority = *splitPri
	parser, err := rfc5424.NewParser(config)
	if err != nil {
		log.Fatalf("failed to create parser: %s", err.Error())
	}

	collecting := *tcpIface != "" || *udpIface != ""
	if *search == "" && !collecting {
		if err := parseFiles(parser, fs.Args(), os.Stdout, *unflatten); err != nil {
			log.Fatal(err.Error())
		}
		return
	}

	absDataDir, err := filepath.Abs(*datadir)
	if err != nil {
		log.Fatalf("failed to get absolute data path for '%s': %s", *datadir, err.Error())
	}

	if *search != "" {
		index, err := syslog5424.OpenIndex(absDataDir)
		if err != nil {
			log.Fatalf("failed to open index at %s: %s", absDataDir, err.Error())
		}
		defer index.Close()
		if err := searchIndex(index, *search, os.Stdout); err != nil {
			log.Fatalf("search failed: %s", err.Error())
		}
		return
	}

	log.Printf("syslog5424 started using %s for index storage", absDataDir)

	index, err := syslog5424.OpenIndex(absDataDir)
	if err != nil {
		log.Fatalf("failed to open index at %s: %s", absDataDir, err.Error())
	}
	defer index.Close()

	// Start the status service if requested.
	if *diagIface != "" {
		diag := status.NewService(*diagIface)
		diag.Register("index", index)
		diag.Register("config", status.ProviderFunc(func() (map[string]interface{}, error) {
			return map[string]interface{}{
				"nilPolicy":     policy.String(),
				"splitPriority": *splitPri,
				"batchSize":     *batchSize,
				"batchTimeout":  *batchTimeout,
				"maxPending":    *indexMaxPending,
			}, nil
		}))
		if err := diag.Start(); err != nil {
			log.Fatalf("failed to create diag server: %s", err.Error())
		}
		defer diag.Close()
		log.Printf("diags now available at %s", diag.Addr())
	}

	// Create and start the batcher.
	batcherTimeout := time.Duration(*batchTimeout) * time.Millisecond
	batcher := syslog5424.NewBatcher(index, parser.Names(), *batchSize, batcherTimeout, *indexMaxPending)

	errChan := make(chan error)
	if err := batcher.Start(errChan); err != nil {
		log.Fatalf("failed to start indexing batcher: %s", err.Error())
	}
	log.Printf("batching configured with size %d, timeout %s, max pending %d",
		*batchSize, batcherTimeout, *indexMaxPending)

	// Start draining batcher errors.
	go func() {
		for err := range errChan {
			if err != nil {
				log.Printf("error indexing batch: %s", err.Error())
			}
		}
	}()

	var collectors []input.Collector

	// Start TCP collector if requested.
	if *tcpIface != "" {
		var tlsConfig *tls.Config
		if *caPemPath != "" && *caKeyPath != "" {
			tlsConfig, err = newTLSConfig(*caPemPath, *caKeyPath)
			if err != nil {
				log.Fatalf("failed to configure TLS: %s", err.Error())
			}
			log.Printf("TLS successfully configured")
		}

		collector := input.NewCollector("tcp", *tcpIface, parser, tlsConfig)
		if collector == nil {
			log.Fatalf("failed to created TCP collector bound to %s", *tcpIface)
		}
		if err := collector.Start(batcher.C()); err != nil {
			log.Fatalf("failed to start TCP collector: %s", err.Error())
		}
		collectors = append(collectors, collector)
		log.Printf("TCP collector listening to %s", collector.Addr())
	}

	// Start UDP collector if requested.
	if *udpIface != "" {
		collector := input.NewCollector("udp", *udpIface, parser, nil)
		if collector == nil {
			log.Fatalf("failed to created UDP collector for %s", *udpIface)
		}
		if err := collector.Start(batcher.C()); err != nil {
			log.Fatalf("failed to start UDP collector: %s", err.Error())
		}
		collectors = append(collectors, collector)
		log.Printf("UDP collector listening to %s", collector.Addr())
	}

	launch := new(expvar.String)
	launch.Set(time.Now().UTC().Format(time.RFC3339))
	stats.Set("launch", launch)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	// Block until one of the signals above is received
	<-signalCh
	log.Println("signal received, shutting down...")

	for _, c := range collectors {
		c.Close()
	}
	batcher.Stop()
}

// parseFiles parses every line of the named files, or of stdin if none are
// named, and writes one JSON object per line to w.
func parseFiles(p *rfc5424.Parser, paths []string, w io.Writer, unflatten bool) error {
	if len(paths) == 0 {
		return parseStream(p, os.Stdin, w, unflatten)
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		err = parseStream(p, f, w, unflatten)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %s", path, err.Error())
		}
	}
	return nil
}

// parseStream parses each line read from r and writes it to w as JSON.
func parseStream(p *rfc5424.Parser, r io.Reader, w io.Writer, unflatten bool) error {
	enc := json.NewEncoder(w)
	return p.ParseLinesFunc(r, func(rec rfc5424.Record) error {
		if !unflatten {
			return enc.Encode(rec)
		}
		return enc.Encode(nested(rec, p.Names()))
	})
}

// nested returns rec with flat structured-data keys replaced by a single
// nested object under the structured-data base key.
func nested(rec rfc5424.Record, names rfc5424.NameProvider) map[string]interface{} {
	m := rec.Map()
	base := names.StructuredBase()
	for k := range m {
		if strings.HasPrefix(k, base) {
			delete(m, k)
		}
	}
	if sd := rfc5424.Unflatten(rec, names); len(sd) > 0 {
		m[base] = sd
	}
	return m
}

// searchIndex writes the source of every event matching q to w, one per line.
func searchIndex(index *syslog5424.Index, q string, w io.Writer) error {
	ids, err := index.Search(q)
	if err != nil {
		return err
	}
	for _, id := range ids {
		source, err := index.Document(id)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", source); err != nil {
			return err
		}
	}
	return nil
}

func newTLSConfig(caPemPath, caKeyPath string) (*tls.Config, error) {
	caPem, err := ioutil.ReadFile(caPemPath)
	if err != nil {
		return nil, err
	}
	ca, err := x509.ParseCertificate(caPem)
	if err != nil {
		return nil, err
	}

	caKey, err := ioutil.ReadFile(caKeyPath)
	if err != nil {
		return nil, err
	}
	key, err := x509.ParsePKCS1PrivateKey(caKey)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	pool.AddCert(ca)

	cert := tls.Certificate{
		Certificate: [][]byte{caPem},
		PrivateKey:  key,
	}

	return &tls.Config{
		ClientAuth:   tls.RequireAndVerifyClientCert,
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pool,
		Rand:         rand.Reader,
	}, nil
}

func printHelp() {
	fmt.Println("syslog5424 [options] [file ...]")
	fmt.Println()
	fmt.Println("With no -tcp, -udp or -search option, each named file (or stdin) is")
	fmt.Println("parsed as RFC 5424 lines and printed as JSON, one object per line.")
	fmt.Println()
	fs.PrintDefaults()
}
