package syslog5424

import (
	"expvar"
	"time"

	"github.com/ekanite/syslog5424/input"
	"github.com/ekanite/syslog5424/rfc5424"
)

const (
	DefaultBatchSize       = 300
	DefaultBatchTimeout    = 1000 * time.Millisecond
	DefaultIndexMaxPending = 1000
)

var (
	stats = expvar.NewMap("engine")
)

// EventIndexer is the interface a system than can index events must implement.
type EventIndexer interface {
	IndexEvents(events []*Event) error
}

// Batcher accepts "input events", and once it has a certain number, or a certain amount
// of time has passed, sends those as indexable Events to an Indexer. It also supports a
// maximum number of unprocessed Events it will keep pending. Once this limit is reached,
// it will not accept anymore until outstanding Events are processed.
type Batcher struct {
	indexer  EventIndexer
	names    rfc5424.NameProvider
	size     int
	duration time.Duration

	c       chan *input.Event
	done    chan struct{}
	stopped chan struct{}
}

// NewBatcher returns a Batcher for EventIndexer e, a batching size of sz, a maximum duration
// of dur, and a maximum outstanding count of max. Event fields are read using names.
func NewBatcher(e EventIndexer, names rfc5424.NameProvider, sz int, dur time.Duration, max int) *Batcher {
	return &Batcher{
		indexer:  e,
		names:    names,
		size:     sz,
		duration: dur,
		c:        make(chan *input.Event, max),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start starts the batching process. The result of every indexing
// operation is sent on errChan, if it is non-nil.
func (b *Batcher) Start(errChan chan<- error) error {
	go func() {
		defer close(b.stopped)
		batch := make([]*Event, 0, b.size)
		timer := time.NewTimer(b.duration)
		timer.Stop() // Stop any first firing.

		send := func() {
			if len(batch) == 0 {
				return
			}
			err := b.indexer.IndexEvents(batch)
			if err != nil {
				stats.Add("batchIndexedError", 1)
			} else {
				stats.Add("batchIndexed", 1)
				stats.Add("eventsIndexed", int64(len(batch)))
			}
			if errChan != nil {
				errChan <- err
			}
			batch = make([]*Event, 0, b.size)
		}

		for {
			select {
			case event := <-b.c:
				batch = append(batch, NewEvent(event, b.names))
				if len(batch) == 1 {
					timer.Reset(b.duration)
				}
				if len(batch) == b.size {
					timer.Stop()
					send()
				}
			case <-timer.C:
				stats.Add("batchTimeout", 1)
				send()
			case <-b.done:
				timer.Stop()
				for len(b.c) > 0 {
					batch = append(batch, NewEvent(<-b.c, b.names))
				}
				send()
				return
			}
		}
	}()

	return nil
}

// Stop indexes any pending events, and returns once the batcher has
// stopped. Events must not be sent to the batcher after Stop, and Stop
// must only be called on a started batcher.
func (b *Batcher) Stop() {
	close(b.done)
	<-b.stopped
}

// C returns the channel on the batcher to which events should be sent.
func (b *Batcher) C() chan<- *input.Event {
	return b.c
}
