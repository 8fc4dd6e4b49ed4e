package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/micro-nova/templog/internal/models"
)

var errFactoryReset = errors.New("controller: factory reset requested")

// Boot resolves the operating mode from the stored credentials.
//
// Without credentials the controller enters configuration mode and brings
// up the access point. With credentials it associates, synchronizes the
// clock and opens the sample store, each with bounded retries, and enters
// connected mode. Exhausting association clears the credentials; every
// other exhaustion keeps them. Either way the returned *RestartError asks
// the caller to restart.
func (c *Controller) Boot(ctx context.Context) (models.Mode, error) {
	creds, err := c.deps.Credentials.Load()
	if err != nil {
		slog.Warn("controller: failed to load credentials, treating as unconfigured", "err", err)
		creds = models.Credentials{}
	}
	c.creds = creds

	if !creds.IsConfigured() {
		c.enterConfiguration(ctx)
		return models.ModeConfiguration, nil
	}

	c.network.Store(creds.NetworkName)
	slog.Info("controller: connecting", "network", creds.NetworkName)

	err = c.retry(ctx, "associate", c.policy.Connect, func(ctx context.Context) error {
		if c.resetRequested() {
			return errFactoryReset
		}
		return c.deps.Network.Associate(ctx, creds)
	})
	switch {
	case errors.Is(err, errFactoryReset):
		return models.ModeBoot, c.factoryReset()
	case ctx.Err() != nil:
		return models.ModeBoot, ctx.Err()
	case err != nil:
		slog.Error("controller: association failed, clearing credentials", "network", creds.NetworkName, "err", err)
		if cerr := c.deps.Credentials.Clear(); cerr != nil {
			slog.Error("controller: failed to clear credentials", "err", cerr)
		}
		return models.ModeBoot, &RestartError{Reason: "association failed"}
	}

	err = c.retry(ctx, "clock sync", c.policy.Sync, func(ctx context.Context) error {
		if c.resetRequested() {
			return errFactoryReset
		}
		return c.deps.Clock.Sync(ctx)
	})
	switch {
	case errors.Is(err, errFactoryReset):
		return models.ModeBoot, c.factoryReset()
	case ctx.Err() != nil:
		return models.ModeBoot, ctx.Err()
	case err != nil:
		slog.Error("controller: clock sync failed", "err", err)
		return models.ModeBoot, &RestartError{Reason: "clock sync failed"}
	}

	err = c.retry(ctx, "open store", c.policy.Connect, func(context.Context) error {
		return c.deps.Samples.Init()
	})
	if err != nil {
		if ctx.Err() != nil {
			return models.ModeBoot, ctx.Err()
		}
		slog.Error("controller: failed to open sample store", "path", c.deps.Samples.Path(), "err", err)
		return models.ModeBoot, &RestartError{Reason: "sample store unavailable"}
	}

	// A zero lastSample makes the first connected tick take a sample.
	c.lastSync = c.deps.Now()
	c.mode.Store(models.ModeConnected)
	slog.Info("controller: connected", "network", creds.NetworkName, "store", c.deps.Samples.Path())
	return models.ModeConnected, nil
}

func (c *Controller) enterConfiguration(ctx context.Context) {
	c.mode.Store(models.ModeConfiguration)
	slog.Info("controller: no credentials, entering configuration mode", "ssid", c.policy.APSSID)
	if err := c.deps.Network.StartAccessPoint(ctx, c.policy.APSSID, c.policy.APSecret); err != nil {
		// The form is still reachable on any existing link.
		slog.Error("controller: failed to start access point", "ssid", c.policy.APSSID, "err", err)
	}
}

// retry runs op up to p.Attempts times, sleeping p.Delay between attempts.
// It stops early on success, on errFactoryReset and on cancellation.
func (c *Controller) retry(ctx context.Context, name string, p RetryPolicy, op func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		err = op(ctx)
		if err == nil {
			if attempt > 1 {
				slog.Info("controller: "+name+" succeeded", "attempt", attempt)
			}
			return nil
		}
		if errors.Is(err, errFactoryReset) || ctx.Err() != nil {
			return err
		}
		slog.Warn("controller: "+name+" attempt failed", "attempt", attempt, "of", p.Attempts, "err", err)
		if attempt < p.Attempts {
			if serr := c.deps.Sleep(ctx, p.Delay); serr != nil {
				return serr
			}
		}
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", name, p.Attempts, err)
}

func (c *Controller) resetRequested() bool {
	return c.deps.Trigger != nil && c.deps.Trigger.Poll()
}

// factoryReset clears the credentials and, by policy, the samples. It
// always returns a *RestartError, even if clearing fails: a restart into an
// unchanged state is preferable to serving on after a reset gesture.
func (c *Controller) factoryReset() error {
	slog.Warn("controller: factory reset", "wipe_samples", c.policy.WipeSamplesOnReset)
	if err := c.deps.Credentials.Clear(); err != nil {
		slog.Error("controller: failed to clear credentials", "err", err)
	}
	if c.policy.WipeSamplesOnReset && c.deps.Samples != nil {
		if err := c.deps.Samples.Clear(); err != nil {
			slog.Error("controller: failed to clear samples", "err", err)
		}
	}
	c.cache.flush()
	return &RestartError{Reason: "factory reset"}
}
