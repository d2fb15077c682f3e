// Package rfc5424 parses single RFC 5424 syslog lines into flat records.
//
// The grammar is implemented by a hand-written recursive descent parser.
// Keys in the resulting Record come from a NameProvider, and NIL header
// fields are represented according to a NilPolicy. Structured data is
// flattened into the same record and can be recovered with Unflatten.
package rfc5424

import "expvar"

var stats = expvar.NewMap("rfc5424")

// Config holds the construction-time options of a Parser. The zero value
// of every field except Names is the default.
type Config struct {
	Specification  Specification        // Grammar to implement. Only RFC5424.
	Names          NameProvider         // Keys for record fields. Required.
	NilPolicy      NilPolicy            // Representation of NIL header fields.
	StructuredData StructuredDataPolicy // Representation of structured data.

	// SplitPriority also stores the facility and severity encoded in PRI.
	// Names must then implement PriorityNameProvider.
	SplitPriority bool
}

// DefaultConfig returns a Config using DefaultNames, omitting NIL fields
// and flattening structured data.
func DefaultConfig() Config {
	return Config{
		Specification:  RFC5424,
		Names:          DefaultNames,
		NilPolicy:      OmitNil,
		StructuredData: FlatStructuredData,
	}
}

// A Parser parses syslog lines. It is immutable once built and may be
// used from multiple goroutines.
type Parser struct {
	names     NameProvider
	priNames  PriorityNameProvider
	nilPolicy NilPolicy
}

// NewParser returns a Parser for the given configuration.
func NewParser(c Config) (*Parser, error) {
	if c.Specification != RFC5424 {
		return nil, &ConfigurationError{Field: "specification", Reason: "unknown specification " + c.Specification.String()}
	}
	if c.Names == nil {
		return nil, &ConfigurationError{Field: "names", Reason: "name provider cannot be nil"}
	}
	if c.Names.StructuredParamPattern() == nil {
		return nil, &ConfigurationError{Field: "names", Reason: "name provider has no structured param pattern"}
	}
	if !c.NilPolicy.valid() {
		return nil, &ConfigurationError{Field: "nil policy", Reason: "unknown policy " + c.NilPolicy.String()}
	}
	if c.StructuredData != FlatStructuredData {
		return nil, &ConfigurationError{Field: "structured data policy", Reason: "unsupported policy " + c.StructuredData.String()}
	}

	p := &Parser{
		names:     c.Names,
		nilPolicy: c.NilPolicy,
	}
	if c.SplitPriority {
		pn, ok := c.Names.(PriorityNameProvider)
		if !ok {
			return nil, &ConfigurationError{Field: "names", Reason: "provider cannot name facility and severity"}
		}
		p.priNames = pn
	}
	return p, nil
}

// Names returns the NameProvider the parser keys records with.
func (p *Parser) Names() NameProvider {
	return p.names
}

// ParseLine parses a single syslog line. Blank input returns
// ErrInvalidArgument, a line violating the grammar returns a *ParseError.
// No Record is returned alongside an error.
func (p *Parser) ParseLine(line string) (Record, error) {
	if trim(line) == "" {
		stats.Add("invalidArgument", 1)
		return Record{}, ErrInvalidArgument
	}

	e := &engine{
		s:         newScanner(line),
		b:         newBuilder(),
		names:     p.names,
		priNames:  p.priNames,
		nilPolicy: p.nilPolicy,
	}
	if err := e.syslogMsg(); err != nil {
		stats.Add("unparsed", 1)
		return Record{}, err
	}
	stats.Add("parsed", 1)
	return e.b.finalize(), nil
}

// ParseLineFunc parses line and passes the record to fn.
func (p *Parser) ParseLineFunc(line string, fn func(Record)) error {
	r, err := p.ParseLine(line)
	if err != nil {
		return err
	}
	fn(r)
	return nil
}
