package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/micro-nova/templog/internal/models"
	"github.com/micro-nova/templog/internal/timeseries"
)

// ErrNotConfigured is returned when credentials without a network name are
// submitted.
var ErrNotConfigured = errors.New("controller: network name is required")

type command struct {
	fn   func()
	done chan struct{}
}

// do runs fn on the control loop and waits for it to finish.
func (c *Controller) do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case c.cmds <- cmd:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-cmd.done
	return nil
}

// SaveCredentials persists creds and schedules a restart. The loop exits
// with a *RestartError right after the reply is delivered.
func (c *Controller) SaveCredentials(ctx context.Context, creds models.Credentials) *models.AppError {
	if !creds.IsConfigured() {
		return toAppError(ErrNotConfigured)
	}
	var err error
	if derr := c.do(ctx, func() {
		if err = c.deps.Credentials.Save(creds); err != nil {
			return
		}
		slog.Info("controller: credentials saved", "network", creds.NetworkName)
		c.restart = &RestartError{Reason: "credentials saved"}
	}); derr != nil {
		return toAppError(derr)
	}
	return toAppError(err)
}

// ClearCredentials wipes the stored credentials and schedules a restart into
// configuration mode. Samples are kept.
func (c *Controller) ClearCredentials(ctx context.Context) *models.AppError {
	var err error
	if derr := c.do(ctx, func() {
		if err = c.deps.Credentials.Clear(); err != nil {
			return
		}
		slog.Info("controller: credentials cleared")
		c.restart = &RestartError{Reason: "credentials cleared"}
	}); derr != nil {
		return toAppError(derr)
	}
	return toAppError(err)
}

// CredentialsChanged reacts to an out-of-band change of the credential
// file. New credentials in configuration mode, or different ones in
// connected mode, restart the daemon.
func (c *Controller) CredentialsChanged(creds models.Credentials) {
	err := c.do(context.Background(), func() {
		switch c.Mode() {
		case models.ModeConfiguration:
			if creds.IsConfigured() {
				c.restart = &RestartError{Reason: "credentials provisioned"}
			}
		case models.ModeConnected:
			if creds != c.creds {
				c.restart = &RestartError{Reason: "credentials changed"}
			}
		}
	})
	if err != nil {
		slog.Debug("controller: credential change ignored", "err", err)
	}
}

// AppendRaw appends an externally supplied row verbatim.
func (c *Controller) AppendRaw(ctx context.Context, row string) *models.AppError {
	var err error
	if derr := c.do(ctx, func() {
		if err = c.requireConnected(); err != nil {
			return
		}
		if err = c.deps.Samples.AppendRaw(row); err == nil {
			c.cache.flush()
		}
	}); derr != nil {
		return toAppError(derr)
	}
	return toAppError(err)
}

// DeleteByTimestamp removes every row stamped ts and returns how many rows
// were removed.
func (c *Controller) DeleteByTimestamp(ctx context.Context, ts int64) (int, *models.AppError) {
	var (
		removed int
		err     error
	)
	if derr := c.do(ctx, func() {
		if err = c.requireConnected(); err != nil {
			return
		}
		removed, err = c.deps.Samples.Delete(ts)
		if err == nil && removed > 0 {
			c.cache.flush()
		}
	}); derr != nil {
		return 0, toAppError(derr)
	}
	if err != nil {
		return 0, toAppError(err)
	}
	return removed, nil
}

// ClearAll discards every sample, leaving only the header.
func (c *Controller) ClearAll(ctx context.Context) *models.AppError {
	var err error
	if derr := c.do(ctx, func() {
		if err = c.requireConnected(); err != nil {
			return
		}
		if err = c.deps.Samples.Clear(); err == nil {
			c.cache.flush()
			slog.Info("controller: samples cleared")
		}
	}); derr != nil {
		return toAppError(derr)
	}
	return toAppError(err)
}

// ReadWindow returns up to the last n samples, oldest first. Requests above
// the store cap are clamped. The returned slice must not be modified.
func (c *Controller) ReadWindow(ctx context.Context, n int) ([]models.Sample, *models.AppError) {
	if n <= 0 {
		return nil, toAppError(timeseries.ErrInvalidWindow)
	}
	if limit := c.deps.Samples.MaxWindow(); n > limit {
		n = limit
	}
	if samples, ok := c.cache.get(n); ok {
		return samples, nil
	}

	var (
		samples []models.Sample
		err     error
	)
	if derr := c.do(ctx, func() {
		if err = c.requireConnected(); err != nil {
			return
		}
		if samples, err = c.deps.Samples.Window(n); err == nil {
			c.cache.set(n, samples)
		}
	}); derr != nil {
		return nil, toAppError(derr)
	}
	if err != nil {
		return nil, toAppError(err)
	}
	return samples, nil
}

// ExportCSV streams the raw store file to w. It runs outside the loop:
// rewrites replace the file by rename, so an open reader always sees one
// complete version.
func (c *Controller) ExportCSV(w io.Writer) *models.AppError {
	if err := c.requireConnected(); err != nil {
		return toAppError(err)
	}
	_, err := c.deps.Samples.WriteTo(w)
	return toAppError(err)
}

func (c *Controller) requireConnected() error {
	if c.Mode() != models.ModeConnected {
		return ErrNotConnected
	}
	return nil
}

// toAppError maps controller and store errors onto HTTP-facing errors.
func toAppError(err error) *models.AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, timeseries.ErrInvalidWindow), errors.Is(err, timeseries.ErrInvalidRow):
		return models.ErrBadRequest(err.Error())
	case errors.Is(err, ErrNotConfigured):
		return models.ErrMissingField("network_name", "Missing SSID or Password")
	case errors.Is(err, ErrNotConnected):
		return models.ErrConflict(err.Error())
	case errors.Is(err, ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.ErrUnavailable(err.Error())
	default:
		return models.ErrInternal(err.Error())
	}
}
