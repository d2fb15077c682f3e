package rfc5424

import (
	"fmt"
	"strings"
)

// Specification selects the syslog grammar a Parser implements.
type Specification int

const (
	// RFC5424 is properly formed RFC 5424 syslog.
	RFC5424 Specification = iota
)

func (s Specification) String() string {
	switch s {
	case RFC5424:
		return "RFC5424"
	}
	return fmt.Sprintf("Specification(%d)", int(s))
}

// NilPolicy decides how a NILVALUE ('-') header field appears in a Record.
type NilPolicy int

const (
	// OmitNil leaves the field out of the Record.
	OmitNil NilPolicy = iota
	// NullNil stores the field with a null value.
	NullNil
	// DashNil stores the field as the literal "-".
	DashNil
)

var nilPolicyNames = map[NilPolicy]string{
	OmitNil: "omit",
	NullNil: "null",
	DashNil: "dash",
}

func (p NilPolicy) String() string {
	if s, ok := nilPolicyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("NilPolicy(%d)", int(p))
}

// ParseNilPolicy returns the policy called s, ignoring case.
func ParseNilPolicy(s string) (NilPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range nilPolicyNames {
		if name == s {
			return p, nil
		}
	}
	return OmitNil, fmt.Errorf("%s is not a valid nil policy", s)
}

func (p NilPolicy) valid() bool {
	_, ok := nilPolicyNames[p]
	return ok
}

// apply records a NIL field under key according to the policy.
func (p NilPolicy) apply(b *builder, key string) {
	switch p {
	case NullNil:
		b.putNull(key)
	case DashNil:
		b.put(key, string(nilValue))
	}
}

// StructuredDataPolicy selects how structured data is represented in a
// Record.
type StructuredDataPolicy int

const (
	// FlatStructuredData stores every SD-PARAM under its own key.
	FlatStructuredData StructuredDataPolicy = iota
)

func (p StructuredDataPolicy) String() string {
	switch p {
	case FlatStructuredData:
		return "flatten"
	}
	return fmt.Sprintf("StructuredDataPolicy(%d)", int(p))
}
