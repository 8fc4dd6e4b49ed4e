// Package mqtt forwards samples to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/micro-nova/templog/internal/models"
)

const sinkQueueSize = 32

// Publisher publishes samples to MQTT.
type Publisher interface {
	// Publish sends one sample to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(s models.Sample) error

	// Close disconnects from the broker.
	Close() error
}

// FormatPayload creates the JSON payload for a sample:
// {"timestamp": <unix seconds>, "temp": <celsius>}.
func FormatPayload(s models.Sample) ([]byte, error) {
	return json.Marshal(s)
}

// Sink adapts a Publisher to events.Sink. Publish queues the sample and
// returns immediately; a single goroutine drains the queue so a slow or
// unreachable broker never stalls the control loop. Samples that do not
// fit in the queue are dropped.
type Sink struct {
	pub   Publisher
	queue chan models.Sample
	wg    sync.WaitGroup
	once  sync.Once
}

// NewSink starts the publishing goroutine.
func NewSink(pub Publisher) *Sink {
	s := &Sink{pub: pub, queue: make(chan models.Sample, sinkQueueSize)}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Sink) Publish(sample models.Sample) {
	select {
	case s.queue <- sample:
	default:
		slog.Warn("mqtt: queue full, dropping sample", "timestamp", sample.Timestamp)
	}
}

func (s *Sink) run() {
	defer s.wg.Done()
	for sample := range s.queue {
		if err := s.pub.Publish(sample); err != nil {
			slog.Warn("mqtt: publish failed", "timestamp", sample.Timestamp, "err", err)
		}
	}
}

// Close drains queued samples, then closes the publisher. Publish must not
// be called after Close.
func (s *Sink) Close() error {
	var err error
	s.once.Do(func() {
		close(s.queue)
		s.wg.Wait()
		err = s.pub.Close()
	})
	return err
}
