package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"squarespool/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// NakamaPoolNotifier signals the live match of a pool after each committed change.
type NakamaPoolNotifier struct {
	nk     runtime.NakamaModule
	logger runtime.Logger
}

// NewNakamaPoolNotifier creates a new notifier adapter.
func NewNakamaPoolNotifier(nk runtime.NakamaModule, logger runtime.Logger) *NakamaPoolNotifier {
	return &NakamaPoolNotifier{nk: nk, logger: logger}
}

// Publish signals every live match watching the pool. No live match is not an error.
func (n *NakamaPoolNotifier) Publish(ctx context.Context, update ports.PoolUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal pool update: %w", err)
	}

	matches, err := n.nk.MatchList(ctx, 10, true, "", nil, nil, liveLabelQuery(update.PoolID))
	if err != nil {
		n.logger.Warn("PoolNotifier: Failed to list live matches for pool %s: %v", update.PoolID, err)
		return fmt.Errorf("failed to list live matches: %w", err)
	}

	var firstErr error
	for _, m := range matches {
		if _, err := n.nk.MatchSignal(ctx, m.GetMatchId(), string(data)); err != nil {
			n.logger.Warn("PoolNotifier: Failed to signal match %s for pool %s: %v", m.GetMatchId(), update.PoolID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

var _ ports.PoolNotifier = (*NakamaPoolNotifier)(nil)
