package input

import (
	"time"

	"github.com/ekanite/syslog5424/rfc5424"
)

// Event is a parsed log line, with a reception timestamp and sequence number.
type Event struct {
	Text          string         // Delimited log line
	Record        rfc5424.Record // Parsed fields
	Timestamp     string         // TIMESTAMP header field, empty if NIL
	ReceptionTime time.Time      // Time log line was received
	Sequence      int64          // Provides order of reception
	SourceIP      string         // Sender's IP address

	referenceTime time.Time // Memomized reference time
}

// NewEvent returns a new Event.
func NewEvent() *Event {
	return &Event{}
}

// ReferenceTime returns the reference time of an event. This is the
// event's own timestamp, or its reception time if the timestamp is NIL.
func (e *Event) ReferenceTime() time.Time {
	if e.referenceTime.IsZero() {
		if e.Timestamp == "" {
			e.referenceTime = e.ReceptionTime
		} else if refTime, err := time.Parse(time.RFC3339Nano, e.Timestamp); err != nil {
			e.referenceTime = e.ReceptionTime
		} else {
			e.referenceTime = refTime
		}
	}
	return e.referenceTime
}
