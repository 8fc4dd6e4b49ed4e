package network

import (
	"context"
	"errors"
	"sync"

	"github.com/micro-nova/templog/internal/models"
)

// ErrFake is the default error returned by scripted fake failures.
var ErrFake = errors.New("network: scripted failure")

// FakeAssociator is a scripted Associator for tests and development.
type FakeAssociator struct {
	mu sync.Mutex

	// FailFirst makes the first N Associate calls fail.
	FailFirst int
	// AlwaysFail makes every Associate call fail.
	AlwaysFail bool
	// APErr, if set, is returned by StartAccessPoint.
	APErr error

	calls   []models.Credentials
	apCalls []string
}

func (f *FakeAssociator) Associate(ctx context.Context, creds models.Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, creds)
	if f.AlwaysFail || len(f.calls) <= f.FailFirst {
		return ErrFake
	}
	return nil
}

func (f *FakeAssociator) StartAccessPoint(ctx context.Context, ssid, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apCalls = append(f.apCalls, ssid)
	return f.APErr
}

// Calls returns the credentials passed to each Associate call.
func (f *FakeAssociator) Calls() []models.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Credentials(nil), f.calls...)
}

// AccessPoints returns the SSIDs passed to StartAccessPoint.
func (f *FakeAssociator) AccessPoints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.apCalls...)
}

// FakeClock is a scripted Clock.
type FakeClock struct {
	mu sync.Mutex

	// FailFirst makes the first N Sync calls fail.
	FailFirst int
	// AlwaysFail makes every Sync call fail.
	AlwaysFail bool

	calls int
}

func (f *FakeClock) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.AlwaysFail || f.calls <= f.FailFirst {
		return ErrNotSynchronized
	}
	return nil
}

// SetAlwaysFail changes AlwaysFail while the fake is in use.
func (f *FakeClock) SetAlwaysFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AlwaysFail = fail
}

// Calls returns how many times Sync was called.
func (f *FakeClock) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var (
	_ Associator = (*FakeAssociator)(nil)
	_ Clock      = (*FakeClock)(nil)
)
