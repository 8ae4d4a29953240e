package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"squarespool/internal/app"
	"squarespool/internal/config"
	"squarespool/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

type nakamaRpc func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)

// poolRpc is a handler with the caller resolved and a service built.
type poolRpc func(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error)

// poolAllocator is shared so every RPC draws from one crypto-seeded source.
var poolAllocator = app.NewAllocator(nil)

// newPoolService builds the pool service for one RPC or match call. Tests replace it.
var newPoolService = func(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule) *app.Service {
	cfg := config.GetPoolConfig()
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	var invites *app.InviteService
	if secret := env[EnvInviteSecret]; secret != "" {
		issuer := env[EnvInviteIssuer]
		if issuer == "" {
			issuer = defaultInviteIssuer
		}
		invites = app.NewInviteService(secret, issuer, time.Duration(cfg.InviteTTLHours)*time.Hour)
	}

	return app.NewService(NewNakamaPoolStore(nk), NewNakamaPoolNotifier(nk, logger), poolAllocator, invites, cfg)
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	rpcs := map[string]nakamaRpc{
		RpcCreatePool:     wrapRpc(RpcCreatePool, rpcCreatePool),
		RpcGetPool:        wrapRpc(RpcGetPool, rpcGetPool),
		RpcListPools:      wrapRpc(RpcListPools, rpcListPools),
		RpcPoolSummary:    wrapRpc(RpcPoolSummary, rpcPoolSummary),
		RpcAssignSquares:  wrapRpc(RpcAssignSquares, rpcAssignSquares),
		RpcAdjustPlayer:   wrapRpc(RpcAdjustPlayer, rpcAdjustPlayer),
		RpcReleasePlayer:  wrapRpc(RpcReleasePlayer, rpcReleasePlayer),
		RpcSetSquare:      wrapRpc(RpcSetSquare, rpcSetSquare),
		RpcUpdatePlayer:   wrapRpc(RpcUpdatePlayer, rpcUpdatePlayer),
		RpcImportLedger:   wrapRpc(RpcImportLedger, rpcImportLedger),
		RpcRandomizeAxes:  wrapRpc(RpcRandomizeAxes, rpcRandomizeAxes),
		RpcResetAxes:      wrapRpc(RpcResetAxes, rpcResetAxes),
		RpcUpdateScores:   wrapRpc(RpcUpdateScores, rpcUpdateScores),
		RpcUpdateSettings: wrapRpc(RpcUpdateSettings, rpcUpdateSettings),
		RpcCreateInvite:   wrapRpc(RpcCreateInvite, rpcCreateInvite),
		RpcWatchPool:      wrapRpc(RpcWatchPool, rpcWatchPool),
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return fmt.Errorf("failed to register rpc %s: %w", id, err)
		}
	}
	return nil
}

// wrapRpc resolves the caller, runs fn and encodes its response as JSON.
func wrapRpc(name string, fn poolRpc) nakamaRpc {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
		if userID == "" {
			return "", errUnauthenticated
		}

		svc := newPoolService(ctx, logger, nk)
		resp, err := fn(ctx, logger, nk, svc, userID, payload)
		if err != nil {
			rtErr := toRuntimeError(err)
			if e, ok := rtErr.(*runtime.Error); ok && e.Code == codeInternal {
				logger.Error("%s [User:%s]: %v", name, userID, err)
			} else {
				logger.Warn("%s [User:%s]: %v", name, userID, err)
			}
			return "", rtErr
		}

		b, err := json.Marshal(resp)
		if err != nil {
			logger.Error("%s [User:%s]: Failed to marshal response: %v", name, userID, err)
			return "", runtime.NewError("internal error", codeInternal)
		}
		return string(b), nil
	}
}

func decodePayload(payload string, v interface{}) error {
	if strings.TrimSpace(payload) == "" {
		payload = "{}"
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("%w: malformed payload", app.ErrInvalidInput)
	}
	return nil
}

type poolRef struct {
	PoolID string `json:"pool_id"`
	Invite string `json:"invite"`
}

func (r poolRef) id() string {
	return app.NormalizePoolID(r.PoolID)
}

func rpcCreatePool(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req app.CreatePoolRequest
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	pool, err := svc.CreatePool(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	logger.WithField("pool_id", pool.ID).Info("%s [User:%s]: Created %dx%d %s pool", RpcCreatePool, userID, pool.GridCols, pool.GridRows, pool.AssignmentMode)
	return pool, nil
}

func rpcGetPool(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req poolRef
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	return svc.GetPool(ctx, userID, req.id(), req.Invite)
}

func rpcPoolSummary(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req poolRef
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	return svc.Summary(ctx, userID, req.id(), req.Invite)
}

type listPoolsResponse struct {
	Pools  []app.PoolListing `json:"pools"`
	Cursor string            `json:"cursor"`
}

func rpcListPools(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req struct {
		Limit  int    `json:"limit"`
		Cursor string `json:"cursor"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	pools, next, err := svc.ListPools(ctx, userID, req.Limit, req.Cursor)
	if err != nil {
		return nil, err
	}
	return listPoolsResponse{Pools: pools, Cursor: next}, nil
}

func rpcAssignSquares(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req struct {
		poolRef
		Name  string `json:"name"`
		Count int    `json:"count"`
		Email string `json:"email"`
		Note  string `json:"note"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	res, err := svc.AssignSquares(ctx, userID, req.id(), req.Name, req.Count, app.OwnerDetails{Email: req.Email, Note: req.Note})
	if err != nil {
		return nil, err
	}
	logger.WithField("pool_id", req.id()).Info("%s [User:%s]: Assigned %d squares, %d free", RpcAssignSquares, userID, len(res.Assigned), res.Remaining)
	return res, nil
}

func rpcAdjustPlayer(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req struct {
		poolRef
		app.AdjustPlayerRequest
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	res, err := svc.AdjustPlayer(ctx, userID, req.id(), req.AdjustPlayerRequest)
	if err != nil {
		return nil, err
	}
	logger.WithField("pool_id", req.id()).Info("%s [User:%s]: +%d -%d squares (reshuffle=%t)", RpcAdjustPlayer, userID, len(res.Assigned), len(res.Cleared), req.Reshuffle)
	return res, nil
}

func rpcReleasePlayer(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req struct {
		poolRef
		Name string `json:"name"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	return svc.ReleasePlayer(ctx, userID, req.id(), req.Name)
}

func rpcSetSquare(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req struct {
		poolRef
		Row   *int   `json:"row"`
		Col   *int   `json:"col"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Note  string `json:"note"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	if req.Row == nil || req.Col == nil {
		return nil, fmt.Errorf("%w: row and col are required", app.ErrInvalidInput)
	}
	return svc.SetSquare(ctx, userID, req.id(), *req.Row, *req.Col, domain.Owner{Name: req.Name, Email: req.Email, Note: req.Note})
}

func rpcUpdatePlayer(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req struct {
		poolRef
		Name  string `json:"name"`
		Email string `json:"email"`
		Note  string `json:"note"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	return svc.UpdatePlayerDetails(ctx, userID, req.id(), req.Name, app.OwnerDetails{Email: req.Email, Note: req.Note})
}

func rpcImportLedger(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req struct {
		poolRef
		Entries []app.LedgerEntry `json:"entries"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	res, err := svc.ImportLedger(ctx, userID, req.id(), req.Entries)
	if err != nil {
		return nil, err
	}
	logger.WithField("pool_id", req.id()).Info("%s [User:%s]: Imported %d buyers, %d squares, %d free", RpcImportLedger, userID, len(req.Entries), len(res.Assigned), res.Remaining)
	return res, nil
}

func rpcRandomizeAxes(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req poolRef
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	return svc.RandomizeAxes(ctx, userID, req.id())
}

func rpcResetAxes(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req poolRef
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	return svc.ResetAxes(ctx, userID, req.id())
}

func rpcUpdateScores(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req struct {
		poolRef
		Scores map[string]domain.ScorePair `json:"scores"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	return svc.UpdateScores(ctx, userID, req.id(), req.Scores)
}

func rpcUpdateSettings(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req struct {
		poolRef
		app.SettingsUpdate
	}
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	return svc.UpdateSettings(ctx, userID, req.id(), req.SettingsUpdate)
}

func rpcCreateInvite(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, svc *app.Service, userID, payload string) (interface{}, error) {
	var req poolRef
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}
	return svc.IssueInvite(ctx, userID, req.id())
}
