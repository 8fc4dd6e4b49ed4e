package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/micro-nova/templog/internal/models"
)

// Run is the control loop. It returns when ctx is done or with a
// *RestartError when the daemon must restart. Each value received from tick
// is taken as the current time; in production tick is a time.Ticker.
func (c *Controller) Run(ctx context.Context, tick <-chan time.Time) error {
	defer c.stop.Do(func() { close(c.stopped) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-c.cmds:
			cmd.fn()
			close(cmd.done)
			if c.restart != nil {
				slog.Info("controller: restarting", "reason", c.restart.Reason)
				return c.restart
			}
		case now := <-tick:
			if err := c.step(ctx, now); err != nil {
				if re, ok := AsRestart(err); ok {
					slog.Info("controller: restarting", "reason", re.Reason)
				}
				return err
			}
		}
	}
}

// step runs one iteration of the timed work. Nothing here blocks beyond the
// bounded sensor read.
func (c *Controller) step(ctx context.Context, now time.Time) error {
	if c.deps.Trigger != nil && c.deps.Trigger.Poll() {
		return c.factoryReset()
	}
	if c.Mode() != models.ModeConnected {
		return nil
	}

	if c.lastSample.IsZero() || now.Sub(c.lastSample) >= c.policy.SampleInterval {
		c.lastSample = now
		if err := c.sample(ctx, now); err != nil {
			return err
		}
	}

	if now.Sub(c.lastSync) >= c.policy.ResyncInterval {
		c.lastSync = now
		c.resync(ctx)
	}
	return nil
}

func (c *Controller) sample(ctx context.Context, now time.Time) error {
	readCtx, cancel := context.WithTimeout(ctx, c.policy.SensorTimeout)
	defer cancel()

	value, err := c.deps.Sensor.ReadTemperature(readCtx)
	if err != nil {
		slog.Warn("controller: sensor read failed", "err", err)
		return nil
	}

	s := models.NewSample(now, value)
	if err := c.deps.Samples.Append(s); err != nil {
		c.appendFailures++
		slog.Error("controller: failed to append sample", "sample", s.String(), "failures", c.appendFailures, "err", err)
		if c.appendFailures >= c.policy.MaxAppendFailures {
			return &RestartError{Reason: "sample store unwritable"}
		}
		return nil
	}
	c.appendFailures = 0
	c.cache.flush()
	slog.Debug("controller: sample recorded", "timestamp", s.Timestamp, "temp", s.Value)
	c.deps.Sink.Publish(s)
	return nil
}

// resync re-runs clock synchronization in the background. Failure is only
// logged; the clock was set once during boot. At most one resync runs at a
// time.
func (c *Controller) resync(ctx context.Context) {
	if !c.resyncing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.resyncing.Store(false)
		err := c.retry(ctx, "clock resync", c.policy.Sync, c.deps.Clock.Sync)
		if err != nil {
			slog.Warn("controller: clock resync failed", "err", err)
			return
		}
		slog.Debug("controller: clock resynchronized")
	}()
}

// Resyncing reports whether a background clock resync is in flight.
func (c *Controller) Resyncing() bool { return c.resyncing.Load() }
