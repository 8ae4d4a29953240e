package nakama

import (
	"context"
	"database/sql"

	"squarespool/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs, the live match and auth hooks for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	path := defaultConfigPath
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok && env[EnvConfigPath] != "" {
		path = env[EnvConfigPath]
	}
	if err := config.LoadPoolConfig(path); err != nil {
		logger.Warn("InitModule: Could not load pool config from %s, using defaults: %v", path, err)
	}

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNamePoolLive, NewLiveMatch); err != nil {
		return err
	}

	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}
	if err := initializer.RegisterAfterAuthenticateEmail(AfterAuthenticateEmail); err != nil {
		return err
	}

	logger.Info("Squares pool module loaded.")
	return nil
}
