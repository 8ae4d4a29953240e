package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"squarespool/internal/app"
	"squarespool/internal/config"
	"squarespool/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// LiveState is the runtime state of a live pool match. The pool itself stays
// in storage; the match only relays it.
type LiveState struct {
	PoolID     string                      `json:"pool_id"`
	Presences  map[string]runtime.Presence `json:"-"` // Map UserId -> Presence
	EmptyTicks int                         `json:"empty_ticks"`
	IdleLimit  int                         `json:"idle_limit"`
	Svc        *app.Service                `json:"-"`
}

// liveUpdate is broadcast with OpPoolUpdated.
type liveUpdate struct {
	Kind     ports.UpdateKind `json:"kind"`
	Update   ports.PoolUpdate `json:"update"`
	Snapshot *app.Snapshot    `json:"snapshot"`
}

// liveError is sent with OpLiveError.
type liveError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewLiveMatch is the factory function registered with Nakama.
func NewLiveMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &liveMatch{}, nil
}

type liveMatch struct{}

func (lm *liveMatch) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	poolID, _ := params["pool_id"].(string)
	poolID = app.NormalizePoolID(poolID)
	if poolID == "" {
		logger.Error("MatchInit: Missing pool_id param.")
		return nil, 0, ""
	}

	cfg := config.GetPoolConfig()
	state := &LiveState{
		PoolID:    poolID,
		Presences: make(map[string]runtime.Presence),
		IdleLimit: cfg.LiveIdleTicks,
		Svc:       newPoolService(ctx, logger, nk),
	}

	label, err := liveLabel(poolID)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := cfg.LiveTickRate
	if tickRate <= 0 {
		tickRate = 1
	}
	logger.WithField("pool_id", poolID).Debug("MatchInit: Live match started.")
	return state, tickRate, label
}

func (lm *liveMatch) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	liveState, ok := state.(*LiveState)
	if !ok {
		return state, false, "state not found"
	}

	if err := liveState.Svc.CanView(ctx, presence.GetUserId(), liveState.PoolID, metadata["invite"]); err != nil {
		logger.Debug("MatchJoinAttempt: User %s rejected for pool %s: %v", presence.GetUserId(), liveState.PoolID, err)
		if errors.Is(err, app.ErrPoolNotFound) {
			return liveState, false, "pool not found"
		}
		return liveState, false, "not allowed to view pool"
	}
	return liveState, true, ""
}

func (lm *liveMatch) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	liveState, ok := state.(*LiveState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		liveState.Presences[p.GetUserId()] = p
	}
	liveState.EmptyTicks = 0

	lm.sendSnapshot(ctx, liveState, dispatcher, logger, presences)
	return liveState
}

func (lm *liveMatch) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	liveState, ok := state.(*LiveState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(liveState.Presences, p.GetUserId())
	}
	return liveState
}

func (lm *liveMatch) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	liveState, ok := state.(*LiveState)
	if !ok {
		return state
	}

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpRequestSnapshot:
			lm.sendSnapshot(ctx, liveState, dispatcher, logger, []runtime.Presence{msg})
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if len(liveState.Presences) > 0 {
		liveState.EmptyTicks = 0
		return liveState
	}
	liveState.EmptyTicks++
	if liveState.IdleLimit > 0 && liveState.EmptyTicks >= liveState.IdleLimit {
		logger.Info("MatchLoop: Terminating idle live match for pool %s.", liveState.PoolID)
		return nil
	}
	return liveState
}

func (lm *liveMatch) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Live match terminated for reason %d", reason)
	return state
}

// MatchSignal receives committed pool updates from the notifier and rebroadcasts
// them with a fresh snapshot.
func (lm *liveMatch) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	liveState, ok := state.(*LiveState)
	if !ok {
		return state, "state not found"
	}

	var update ports.PoolUpdate
	if err := json.Unmarshal([]byte(data), &update); err != nil {
		logger.Warn("MatchSignal: Failed to decode pool update: %v", err)
		return liveState, "bad update"
	}
	if update.PoolID != liveState.PoolID {
		return liveState, "wrong pool"
	}
	if len(liveState.Presences) == 0 {
		return liveState, "ok"
	}

	snap, err := liveState.Svc.Snapshot(ctx, liveState.PoolID)
	if err != nil {
		logger.Error("MatchSignal: Failed to load pool %s: %v", liveState.PoolID, err)
		return liveState, "snapshot failed"
	}
	bytes, err := json.Marshal(liveUpdate{Kind: update.Kind, Update: update, Snapshot: snap})
	if err != nil {
		logger.Error("MatchSignal: Failed to marshal update: %v", err)
		return liveState, "marshal failed"
	}
	if err := dispatcher.BroadcastMessage(OpPoolUpdated, bytes, nil, nil, true); err != nil {
		logger.Warn("MatchSignal: Failed to broadcast update: %v", err)
	}
	return liveState, "ok"
}

// sendSnapshot sends the current pool to the given presences, or an error message if it cannot be read.
func (lm *liveMatch) sendSnapshot(ctx context.Context, state *LiveState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, presences []runtime.Presence) {
	snap, err := state.Svc.Snapshot(ctx, state.PoolID)
	if err != nil {
		logger.Error("sendSnapshot: Failed to load pool %s: %v", state.PoolID, err)
		rtErr, _ := toRuntimeError(err).(*runtime.Error)
		payload := liveError{Code: codeInternal, Message: "internal error"}
		if rtErr != nil {
			payload = liveError{Code: rtErr.Code, Message: rtErr.Message}
		}
		bytes, _ := json.Marshal(payload)
		dispatcher.BroadcastMessage(OpLiveError, bytes, presences, nil, true)
		return
	}

	bytes, err := json.Marshal(snap)
	if err != nil {
		logger.Error("sendSnapshot: Failed to marshal snapshot: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpPoolSnapshot, bytes, presences, nil, true); err != nil {
		logger.Warn("sendSnapshot: Failed to send snapshot: %v", err)
	}
}
