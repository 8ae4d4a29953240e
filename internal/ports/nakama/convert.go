package nakama

import (
	"errors"

	"squarespool/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// gRPC status codes used by RPC errors.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codePermissionDenied   = 7
	codeFailedPrecondition = 9
	codeAborted            = 10
	codeInternal           = 13
	codeUnauthenticated    = 16
)

var errUnauthenticated = runtime.NewError("authentication required", codeUnauthenticated)

// toRuntimeError maps app errors onto gRPC codes. Unknown errors are reported
// as internal without leaking their text.
func toRuntimeError(err error) error {
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrInvalidInvite):
		return runtime.NewError(err.Error(), codeInvalidArgument)
	case errors.Is(err, app.ErrPoolNotFound):
		return runtime.NewError(err.Error(), codeNotFound)
	case errors.Is(err, app.ErrNotAdmin), errors.Is(err, app.ErrForbidden):
		return runtime.NewError(err.Error(), codePermissionDenied)
	case errors.Is(err, app.ErrCapacityExceeded), errors.Is(err, app.ErrWrongMode), errors.Is(err, app.ErrInvitesDisabled):
		return runtime.NewError(err.Error(), codeFailedPrecondition)
	case errors.Is(err, app.ErrConflict):
		return runtime.NewError(err.Error(), codeAborted)
	default:
		return runtime.NewError("internal error", codeInternal)
	}
}

// liveLabel encodes the label of a live pool match.
func liveLabel(poolID string) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		"game":    liveLabelGame,
		"pool_id": poolID,
	})
	if err != nil {
		return "", err
	}
	b, err := protojson.Marshal(label)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// liveLabelQuery finds the live match of a pool.
func liveLabelQuery(poolID string) string {
	return "+label.game:" + liveLabelGame + " +label.pool_id:" + poolID
}
