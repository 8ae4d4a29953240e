package nakama

import (
	"context"

	"squarespool/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// WatchPoolResponse is the live match a client joins to follow a pool.
type WatchPoolResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// rpcWatchPool returns the live match for a pool the caller may view, creating it on first use.
func rpcWatchPool(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req poolRef
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	poolID := req.id()
	if err := svc.CanView(ctx, userID, poolID, req.Invite); err != nil {
		return nil, err
	}

	matches, err := nk.MatchList(ctx, 1, true, "", nil, nil, liveLabelQuery(poolID))
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return nil, err
	}
	if len(matches) > 0 {
		return WatchPoolResponse{MatchID: matches[0].GetMatchId(), IsNew: false}, nil
	}

	matchID, err := nk.MatchCreate(ctx, MatchNamePoolLive, map[string]interface{}{"pool_id": poolID})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return nil, err
	}
	logger.WithField("pool_id", poolID).Info("%s [User:%s]: Started live match %s", RpcWatchPool, userID, matchID)
	return WatchPoolResponse{MatchID: matchID, IsNew: true}, nil
}
