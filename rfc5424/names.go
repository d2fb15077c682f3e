package rfc5424

import (
	"fmt"
	"regexp"
)

// NameProvider supplies the keys under which parsed fields are stored in a
// Record.
//
// StructuredParam and StructuredParamPattern must be inverses: for any
// SD-ID and PARAM-NAME free of the key separator, matching the pattern
// against StructuredParam(id, name) yields id as group 1 and name as
// group 2.
type NameProvider interface {
	Message() string
	AppName() string
	HostName() string
	Priority() string
	ProcessID() string
	Timestamp() string
	MessageID() string
	Version() string

	StructuredBase() string
	StructuredElementID(id string) string
	StructuredParam(id, name string) string
	StructuredParamPattern() *regexp.Regexp
}

// PriorityNameProvider is implemented by providers that can name the
// facility and severity derived from PRI.
type PriorityNameProvider interface {
	Facility() string
	Severity() string
}

// DefaultPrefix is the root of every key produced by DefaultNames.
const DefaultPrefix = "syslog"

// DefaultNames is the NameProvider used by DefaultConfig. Keys are
// dotted, e.g. syslog.header.appName and syslog.structuredData.<id>.<name>.
var DefaultNames = PrefixNames(DefaultPrefix)

// DottedNames lays keys out as <prefix>.header.<field>,
// <prefix>.message and <prefix>.structuredData.<id>.<name>. It is
// immutable and safe for concurrent use.
type DottedNames struct {
	prefix  string
	base    string
	pattern *regexp.Regexp
}

// PrefixNames returns a DottedNames rooted at prefix.
func PrefixNames(prefix string) *DottedNames {
	base := prefix + ".structuredData"
	return &DottedNames{
		prefix:  prefix,
		base:    base,
		pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(base) + `\.(.+)\.(.+)$`),
	}
}

func (n *DottedNames) header(field string) string {
	return n.prefix + ".header." + field
}

func (n *DottedNames) Message() string   { return n.prefix + ".message" }
func (n *DottedNames) AppName() string   { return n.header("appName") }
func (n *DottedNames) HostName() string  { return n.header("hostName") }
func (n *DottedNames) Priority() string  { return n.header("pri") }
func (n *DottedNames) ProcessID() string { return n.header("procId") }
func (n *DottedNames) Timestamp() string { return n.header("timestamp") }
func (n *DottedNames) MessageID() string { return n.header("msgId") }
func (n *DottedNames) Version() string   { return n.header("version") }
func (n *DottedNames) Facility() string  { return n.header("facility") }
func (n *DottedNames) Severity() string  { return n.header("severity") }

// StructuredBase returns the prefix shared by every structured data key.
func (n *DottedNames) StructuredBase() string { return n.base }

// StructuredElementID returns the key naming an SD-ELEMENT as a whole.
func (n *DottedNames) StructuredElementID(id string) string {
	return fmt.Sprintf("%s.%s", n.base, id)
}

// StructuredParam returns the key for one SD-PARAM of element id.
func (n *DottedNames) StructuredParam(id, name string) string {
	return fmt.Sprintf("%s.%s.%s", n.base, id, name)
}

// StructuredParamPattern matches keys produced by StructuredParam.
func (n *DottedNames) StructuredParamPattern() *regexp.Regexp {
	return n.pattern
}
