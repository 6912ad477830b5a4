package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/glebk/pizza-bot/internal/commerce"
)

// minRefreshInterval bounds the refresh rate for very short token lifetimes
const minRefreshInterval = time.Second

// TokenMinter obtains new access tokens
type TokenMinter interface {
	MintToken(ctx context.Context, clientID, secret string) (commerce.AccessToken, error)
}

// RefreshObserver is told about every refresh attempt
type RefreshObserver func(err error)

// TokenRefreshJob replaces the shared access token before it expires
type TokenRefreshJob struct {
	minter   TokenMinter
	store    *commerce.TokenStore
	clientID string
	secret   string
	lead     time.Duration
	timeout  time.Duration
	retry    time.Duration
	observe  RefreshObserver

	cron   *cron.Cron
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewTokenRefreshJob creates a job refreshing store lead before each expiry
func NewTokenRefreshJob(minter TokenMinter, store *commerce.TokenStore, clientID, secret string, lead time.Duration, logger *slog.Logger) *TokenRefreshJob {
	return &TokenRefreshJob{
		minter:   minter,
		store:    store,
		clientID: clientID,
		secret:   secret,
		lead:     lead,
		timeout:  30 * time.Second,
		retry:    max(lead/2, minRefreshInterval),
		cron:     cron.New(),
		logger:   logger.With("component", "token_refresh_job"),
	}
}

// OnRefresh registers an observer of refresh attempts
func (j *TokenRefreshJob) OnRefresh(observe RefreshObserver) {
	j.observe = observe
}

// RetryEvery sets the pause between attempts after a failed refresh
func (j *TokenRefreshJob) RetryEvery(d time.Duration) {
	j.retry = d
}

// Name implements Job
func (j *TokenRefreshJob) Name() string {
	return "token refresh"
}

// Interval returns the refresh period derived from the stored token lifetime
func (j *TokenRefreshJob) Interval() (time.Duration, error) {
	tok, ok := j.store.Current()
	if !ok || tok.TTL <= 0 {
		return 0, errors.New("token store holds no token with a lifetime")
	}
	interval := tok.TTL - j.lead
	if interval < minRefreshInterval {
		interval = minRefreshInterval
	}
	return interval, nil
}

// Start schedules the refresh. The store must already hold a token.
func (j *TokenRefreshJob) Start() error {
	interval, err := j.Interval()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		_ = j.RefreshWithRetry(ctx, interval)
	}))
	j.cron.Start()

	j.logger.Info("token refresh job started", "interval", interval.String())
	return nil
}

// Stop stops the job and waits for a running refresh to finish
func (j *TokenRefreshJob) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	<-j.cron.Stop().Done()
	j.logger.Info("token refresh job stopped")
}

// Refresh mints a token and stores it. On failure the old token stays in place.
func (j *TokenRefreshJob) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	tok, err := j.minter.MintToken(ctx, j.clientID, j.secret)
	if j.observe != nil {
		j.observe(err)
	}
	if err != nil {
		j.logger.Error("failed to refresh access token", "error", err)
		return fmt.Errorf("failed to refresh access token: %w", err)
	}

	j.store.Set(tok)
	j.logger.Debug("access token refreshed", "expires_at", tok.ExpiresAt)
	return nil
}

// RefreshWithRetry refreshes the token, retrying failed attempts until one
// succeeds, ctx is done or the next attempt would start after within.
func (j *TokenRefreshJob) RefreshWithRetry(ctx context.Context, within time.Duration) error {
	deadline := time.Now().Add(within)
	for {
		err := j.Refresh(ctx)
		if err == nil {
			return nil
		}
		if time.Now().Add(j.retry).After(deadline) {
			return err
		}

		j.logger.Warn("retrying token refresh", "in", j.retry.String())
		timer := time.NewTimer(j.retry)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		}
	}
}
