// Package controller implements the logger's connectivity state machine.
//
// A Controller boots into configuration or connected mode from the stored
// credentials, then runs a single control loop that owns the time-series
// store. Sampling, clock resync, reset-button polling and every store or
// credential operation requested over HTTP are executed by that loop, one at
// a time. Leaving a mode is never done in-process: the loop returns a
// *RestartError and the caller restarts the daemon.
package controller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/micro-nova/templog/internal/config"
	"github.com/micro-nova/templog/internal/events"
	"github.com/micro-nova/templog/internal/hardware"
	"github.com/micro-nova/templog/internal/identity"
	"github.com/micro-nova/templog/internal/models"
	"github.com/micro-nova/templog/internal/network"
	"github.com/micro-nova/templog/internal/reset"
	"github.com/micro-nova/templog/internal/timeseries"
)

var (
	// ErrNotConnected is returned by store operations outside connected mode.
	ErrNotConnected = errors.New("controller: not in connected mode")
	// ErrStopped is returned when the control loop is no longer running.
	ErrStopped = errors.New("controller: control loop stopped")
)

// RestartError ends the control loop when the daemon must restart: after a
// credential change, a factory reset or an escalated failure.
type RestartError struct {
	Reason string
}

func (e *RestartError) Error() string { return "controller: restart required: " + e.Reason }

// AsRestart reports whether err asks for a restart.
func AsRestart(err error) (*RestartError, bool) {
	var re *RestartError
	ok := errors.As(err, &re)
	return re, ok
}

// Deps are the collaborators a Controller drives. All fields except Now and
// Sleep are required; Sink may be a no-op.
type Deps struct {
	Credentials config.Store
	Samples     *timeseries.Store
	Sensor      hardware.Sensor
	Network     network.Associator
	Clock       network.Clock
	Sink        events.Sink
	Trigger     *reset.Trigger
	Identity    identity.Info

	// Now defaults to time.Now.
	Now func() time.Time
	// Sleep waits between retry attempts; defaults to a timer honouring ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Controller is the connectivity state machine.
type Controller struct {
	deps   Deps
	policy Policy
	cache  *windowCache

	cmds    chan command
	stopped chan struct{}
	stop    sync.Once

	mode    atomic.Value // models.Mode
	online  atomic.Bool
	network atomic.Value // string
	started time.Time

	// Owned by the control loop.
	creds          models.Credentials
	lastSample     time.Time
	lastSync       time.Time
	appendFailures int
	resyncing      atomic.Bool
	restart        *RestartError
}

// New creates a Controller. Call Boot, then Run.
func New(deps Deps, policy Policy) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepCtx
	}
	if deps.Sink == nil {
		deps.Sink = events.Multi(nil)
	}
	policy = policy.withDefaults()

	c := &Controller{
		deps:    deps,
		policy:  policy,
		cache:   newWindowCache(policy.CacheTTL),
		cmds:    make(chan command),
		stopped: make(chan struct{}),
		started: deps.Now(),
	}
	c.mode.Store(models.ModeBoot)
	c.network.Store("")
	return c
}

// Mode returns the current mode.
func (c *Controller) Mode() models.Mode {
	return c.mode.Load().(models.Mode)
}

// SetOnline records the result of the latest connectivity check.
func (c *Controller) SetOnline(online bool) {
	c.online.Store(online)
}

// Info returns the system summary.
func (c *Controller) Info() models.Info {
	info := models.Info{
		Hostname: c.deps.Identity.Hostname,
		Version:  c.deps.Identity.Version,
		Mode:     c.Mode(),
		Network:  c.network.Load().(string),
		Offline:  !c.online.Load(),
		Started:  c.started.UTC().Format(time.RFC3339),
	}
	if c.deps.Samples != nil {
		info.DataPath = c.deps.Samples.Path()
	}
	return info
}

// Policy returns the effective policy.
func (c *Controller) Policy() Policy { return c.policy }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
