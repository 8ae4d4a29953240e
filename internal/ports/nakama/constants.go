package nakama

// RPC ids registered with Nakama.
const (
	RpcCreatePool     = "create_pool"
	RpcGetPool        = "get_pool"
	RpcListPools      = "list_pools"
	RpcPoolSummary    = "pool_summary"
	RpcAssignSquares  = "assign_squares"
	RpcAdjustPlayer   = "adjust_player"
	RpcReleasePlayer  = "release_player"
	RpcSetSquare      = "set_square"
	RpcUpdatePlayer   = "update_player"
	RpcImportLedger   = "import_ledger"
	RpcRandomizeAxes  = "randomize_axes"
	RpcResetAxes      = "reset_axes"
	RpcUpdateScores   = "update_scores"
	RpcUpdateSettings = "update_settings"
	RpcCreateInvite   = "create_invite"
	RpcWatchPool      = "watch_pool"
)

const (
	// MatchNamePoolLive is the authoritative match handler that fans pool updates out to viewers.
	MatchNamePoolLive = "squares_pool_live"

	// liveLabelGame tags live pool matches in label queries.
	liveLabelGame = "squares"

	// poolCollection holds one system-owned storage object per pool, keyed by pool id.
	poolCollection = "squares_pool"
)

// Op codes for live pool messages.
const (
	// Client -> Server
	OpRequestSnapshot int64 = 1

	// Server -> Client events
	OpPoolSnapshot int64 = 101
	OpPoolUpdated  int64 = 102
	OpLiveError    int64 = 199
)

// Runtime env keys.
const (
	EnvInviteSecret = "squares_invite_secret"
	EnvInviteIssuer = "squares_invite_issuer"
	EnvConfigPath   = "squares_config_path"

	defaultInviteIssuer = "squares-pool"
	defaultConfigPath   = "data/pool_config.json"
)
