package syslog5424

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ekanite/syslog5424/input"
	"github.com/ekanite/syslog5424/rfc5424"
)

// Event is a parsed log message that can be indexed.
type Event struct {
	*input.Event
	names rfc5424.NameProvider
}

// NewEvent returns an indexable Event for e, reading fields with names.
func NewEvent(e *input.Event, names rfc5424.NameProvider) *Event {
	return &Event{Event: e, names: names}
}

// ID returns a unique ID for the event.
func (e Event) ID() DocID {
	return DocID(fmt.Sprintf("%016x%016x",
		uint64(e.ReferenceTime().UnixNano()), uint64(e.Sequence)))
}

// eventData is the indexed form of an event.
type eventData struct {
	Message        string
	Priority       string
	Hostname       string
	AppName        string
	ProcID         string
	MsgID          string
	StructuredData string
	SourceIP       string
	ReferenceTime  time.Time
	ReceptionTime  time.Time
}

// Data returns the indexable data.
func (e Event) Data() interface{} {
	get := func(key string) string {
		v, _ := e.Record.Get(key)
		return v
	}
	return eventData{
		Message:        get(e.names.Message()),
		Priority:       get(e.names.Priority()),
		Hostname:       get(e.names.HostName()),
		AppName:        get(e.names.AppName()),
		ProcID:         get(e.names.ProcessID()),
		MsgID:          get(e.names.MessageID()),
		StructuredData: structuredText(rfc5424.Unflatten(e.Record, e.names)),
		SourceIP:       e.SourceIP,
		ReferenceTime:  e.ReferenceTime(),
		ReceptionTime:  e.ReceptionTime,
	}
}

// Source returns the original received data.
func (e Event) Source() []byte {
	return []byte(e.Text)
}

// structuredText renders structured data as searchable text, one
// "id name=value" term per param, in a stable order.
func structuredText(sd rfc5424.StructuredData) string {
	var terms []string
	for id, params := range sd {
		for name, value := range params {
			terms = append(terms, id+" "+name+"="+value)
		}
	}
	sort.Strings(terms)
	return strings.Join(terms, " ")
}
