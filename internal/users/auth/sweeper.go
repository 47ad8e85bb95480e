// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// # Revocation Sweeper

// Sweeper periodically removes blacklist rows whose token has expired.
type Sweeper struct {
	revocationRepository RevocationRepository
	clock                clockwork.Clock
	logger               *slog.Logger
}

// NewSweeper creates a [Sweeper].
func NewSweeper(repository RevocationRepository, clock clockwork.Clock, logger *slog.Logger) *Sweeper {
	return &Sweeper{revocationRepository: repository, clock: clock, logger: logger}
}

// Sweep runs a single cleanup pass and returns the number of rows removed.
func (sweeper *Sweeper) Sweep(context context.Context) (int64, error) {
	removed, err := sweeper.revocationRepository.DeleteExpired(context, sweeper.clock.Now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		sweeper.logger.InfoContext(context, "revoked_tokens_swept", slog.Int64("removed", removed))
	}
	return removed, nil
}

/*
Run sweeps on every tick until the context is cancelled.

Parameters:
  - context: context.Context (cancel to stop)
  - interval: time.Duration
*/
func (sweeper *Sweeper) Run(context context.Context, interval time.Duration) {
	ticker := sweeper.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-context.Done():
			return
		case <-ticker.Chan():
			if _, err := sweeper.Sweep(context); err != nil {
				sweeper.logger.ErrorContext(context, "revoked_tokens_sweep_failed", slog.Any("error", err))
			}
		}
	}
}
