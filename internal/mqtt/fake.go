package mqtt

import (
	"sync"

	"github.com/micro-nova/templog/internal/models"
)

// FakePublisher records published samples for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	samples  []models.Sample
	payloads [][]byte
	closed   bool

	// PublishError, if set, will be returned by Publish.
	PublishError error
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(s models.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(s)
	if err != nil {
		return err
	}
	f.samples = append(f.samples, s)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Samples returns the samples published so far.
func (f *FakePublisher) Samples() []models.Sample {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Sample(nil), f.samples...)
}

// Payloads returns the JSON payloads published so far.
func (f *FakePublisher) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

var _ Publisher = (*FakePublisher)(nil)
