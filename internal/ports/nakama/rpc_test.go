package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"

	"squarespool/internal/app"
	"squarespool/internal/ports"

	"github.com/google/go-cmp/cmp"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

func callRpc(t *testing.T, nk *fakeNakama, userID, name string, fn poolRpc, payload string) (string, error) {
	t.Helper()
	return wrapRpc(name, fn)(userCtx(userID), noopLogger{}, nil, nk, payload)
}

func mustRpc(t *testing.T, nk *fakeNakama, userID, name string, fn poolRpc, payload string, out interface{}) {
	t.Helper()
	raw, err := callRpc(t, nk, userID, name, fn, payload)
	if err != nil {
		t.Fatalf("%s error = %v", name, err)
	}
	if out == nil {
		return
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		t.Fatalf("%s: unmarshal response %s: %v", name, raw, err)
	}
}

func errorCode(t *testing.T, err error) int {
	t.Helper()
	var rtErr *runtime.Error
	if !errors.As(err, &rtErr) {
		t.Fatalf("error %v is not a runtime error", err)
	}
	return rtErr.Code
}

func createPool(t *testing.T, nk *fakeNakama, userID, payload string) string {
	t.Helper()
	var pool struct {
		ID string `json:"id"`
	}
	mustRpc(t, nk, userID, RpcCreatePool, rpcCreatePool, payload, &pool)
	if pool.ID == "" {
		t.Fatal("create_pool returned no id")
	}
	return pool.ID
}

const autoPoolPayload = `{"name":"Office","hostName":"Dana","topTeam":"Chiefs","leftTeam":"Eagles","gridCols":5,"gridRows":5,"assignmentMode":"auto","pricePerSquare":10,"hostCut":"10%","isPublic":true}`

func TestWrapRpc_RequiresAuthentication(t *testing.T) {
	_, err := callRpc(t, newFakeNakama(), "", RpcGetPool, rpcGetPool, `{}`)
	if code := errorCode(t, err); code != codeUnauthenticated {
		t.Fatalf("code = %d, want %d", code, codeUnauthenticated)
	}
}

func TestWrapRpc_MalformedPayload(t *testing.T) {
	_, err := callRpc(t, newFakeNakama(), "host", RpcCreatePool, rpcCreatePool, `{"name":`)
	if code := errorCode(t, err); code != codeInvalidArgument {
		t.Fatalf("code = %d, want %d", code, codeInvalidArgument)
	}
}

func TestRpc_AssignAndSummary(t *testing.T) {
	nk := newFakeNakama()
	poolID := createPool(t, nk, "host", autoPoolPayload)

	var res app.SquaresResult
	mustRpc(t, nk, "host", RpcAssignSquares, rpcAssignSquares,
		`{"pool_id":"`+poolID+`","name":"Ann","count":3,"email":"ann@example.com"}`, &res)
	if len(res.Assigned) != 3 || res.Remaining != 22 {
		t.Fatalf("assign = %d squares, %d remaining; want 3, 22", len(res.Assigned), res.Remaining)
	}
	for _, key := range res.Assigned {
		if got := res.Pool.Cells[key]; got.Name != "Ann" || got.Email != "ann@example.com" {
			t.Errorf("cell %s = %+v", key, got)
		}
	}

	var summary app.Summary
	mustRpc(t, nk, "guest", RpcPoolSummary, rpcPoolSummary, `{"pool_id":"`+poolID+`"}`, &summary)
	if summary.Board.Taken != 3 || summary.Board.Total != 25 {
		t.Errorf("board = %+v", summary.Board)
	}
	if summary.Payouts.Pot != 3000 || summary.Payouts.HostCut != 300 || summary.Payouts.Net != 2700 {
		t.Errorf("payouts = %+v", summary.Payouts)
	}
	var paid int64
	for _, v := range summary.Payouts.ByQuarter {
		paid += v
	}
	if paid != summary.Payouts.Net {
		t.Errorf("quarters pay %d, want net %d", paid, summary.Payouts.Net)
	}
	if len(summary.Players) != 1 || summary.Players[0].Name != "Ann" || summary.Players[0].Count != 3 {
		t.Errorf("players = %+v", summary.Players)
	}
}

func TestRpc_ErrorCodes(t *testing.T) {
	nk := newFakeNakama()
	poolID := createPool(t, nk, "host", autoPoolPayload)
	manualID := createPool(t, nk, "host", `{"name":"Manual","hostName":"Dana","topTeam":"A","leftTeam":"B","isPublic":true}`)

	tests := []struct {
		name    string
		userID  string
		rpc     string
		fn      poolRpc
		payload string
		want    int
	}{
		{"NotAdmin", "guest", RpcAssignSquares, rpcAssignSquares, `{"pool_id":"` + poolID + `","name":"Bo","count":1}`, codePermissionDenied},
		{"UnknownPool", "host", RpcGetPool, rpcGetPool, `{"pool_id":"ZZZZZZ"}`, codeNotFound},
		{"OverCapacity", "host", RpcAssignSquares, rpcAssignSquares, `{"pool_id":"` + poolID + `","name":"Bo","count":26}`, codeFailedPrecondition},
		{"WrongMode", "host", RpcAssignSquares, rpcAssignSquares, `{"pool_id":"` + manualID + `","name":"Bo","count":1}`, codeFailedPrecondition},
		{"BlankName", "host", RpcAssignSquares, rpcAssignSquares, `{"pool_id":"` + poolID + `","name":"  ","count":1}`, codeInvalidArgument},
		{"MissingCell", "host", RpcSetSquare, rpcSetSquare, `{"pool_id":"` + manualID + `","name":"Bo"}`, codeInvalidArgument},
		{"BadScore", "host", RpcUpdateScores, rpcUpdateScores, `{"pool_id":"` + poolID + `","scores":{"q1":{"top":"x","left":"3"}}}`, codeInvalidArgument},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := callRpc(t, nk, test.userID, test.rpc, test.fn, test.payload)
			if code := errorCode(t, err); code != test.want {
				t.Fatalf("code = %d, want %d (%v)", code, test.want, err)
			}
		})
	}
}

func TestRpc_ManualBoardFlow(t *testing.T) {
	nk := newFakeNakama()
	poolID := createPool(t, nk, "host", `{"name":"Manual","hostName":"Dana","topTeam":"A","leftTeam":"B","isPublic":true}`)

	var res app.SquaresResult
	mustRpc(t, nk, "host", RpcSetSquare, rpcSetSquare, `{"pool_id":"`+poolID+`","row":0,"col":9,"name":"Cy"}`, &res)
	if diff := cmp.Diff([]string{"0-9"}, keyStrings(res.Assigned)); diff != "" {
		t.Fatalf("assigned mismatch (-want +got):\n%s", diff)
	}

	res = app.SquaresResult{}
	mustRpc(t, nk, "host", RpcUpdatePlayer, rpcUpdatePlayer, `{"pool_id":"`+poolID+`","name":"Cy","note":"paid"}`, &res)
	if got := res.Pool.Cells["0-9"].Note; got != "paid" {
		t.Errorf("note = %q, want paid", got)
	}

	res = app.SquaresResult{}
	mustRpc(t, nk, "host", RpcReleasePlayer, rpcReleasePlayer, `{"pool_id":"`+poolID+`","name":"Cy"}`, &res)
	if diff := cmp.Diff([]string{"0-9"}, keyStrings(res.Cleared)); diff != "" {
		t.Fatalf("cleared mismatch (-want +got):\n%s", diff)
	}

	var pool struct {
		AssignmentMode string `json:"assignmentMode"`
	}
	mustRpc(t, nk, "host", RpcUpdateSettings, rpcUpdateSettings, `{"pool_id":"`+poolID+`","assignmentMode":"auto"}`, &pool)
	if pool.AssignmentMode != "auto" {
		t.Errorf("assignmentMode = %q, want auto", pool.AssignmentMode)
	}

	res = app.SquaresResult{}
	mustRpc(t, nk, "host", RpcImportLedger, rpcImportLedger,
		`{"pool_id":"`+poolID+`","entries":[{"name":"Ann","qty":4},{"name":"Bo","qty":2}]}`, &res)
	if len(res.Assigned) != 6 || res.Remaining != 94 {
		t.Errorf("ledger = %d assigned, %d remaining", len(res.Assigned), res.Remaining)
	}

	res = app.SquaresResult{}
	mustRpc(t, nk, "host", RpcAdjustPlayer, rpcAdjustPlayer, `{"pool_id":"`+poolID+`","name":"Ann","count":1}`, &res)
	if len(res.Cleared) != 3 || len(res.Pool.CellsOwnedBy("Ann")) != 1 {
		t.Errorf("adjust cleared %d, Ann holds %d", len(res.Cleared), len(res.Pool.CellsOwnedBy("Ann")))
	}
}

func TestRpc_AxesAndScores(t *testing.T) {
	nk := newFakeNakama()
	poolID := createPool(t, nk, "host", autoPoolPayload)

	var pool struct {
		TopAxis  []json.RawMessage `json:"topAxis"`
		LeftAxis []json.RawMessage `json:"leftAxis"`
	}
	mustRpc(t, nk, "host", RpcRandomizeAxes, rpcRandomizeAxes, `{"pool_id":"`+poolID+`"}`, &pool)
	if len(pool.TopAxis) != 5 || len(pool.LeftAxis) != 5 {
		t.Fatalf("axes = %d x %d, want 5 x 5", len(pool.TopAxis), len(pool.LeftAxis))
	}
	if _, err := callRpc(t, nk, "host", RpcRandomizeAxes, rpcRandomizeAxes, `{"pool_id":"`+poolID+`"}`); err == nil {
		t.Fatal("second randomize should be rejected")
	}

	mustRpc(t, nk, "host", RpcUpdateScores, rpcUpdateScores, `{"pool_id":"`+poolID+`","scores":{"q1":{"top":"7","left":"10"}}}`, nil)

	var summary app.Summary
	mustRpc(t, nk, "host", RpcPoolSummary, rpcPoolSummary, `{"pool_id":"`+poolID+`"}`, &summary)
	if summary.Quarters[0].Winner == nil {
		t.Fatal("q1 should have a winning square once axes and scores are set")
	}
	if summary.Quarters[3].Winner != nil {
		t.Error("final has no score yet and should have no winner")
	}

	mustRpc(t, nk, "host", RpcResetAxes, rpcResetAxes, `{"pool_id":"`+poolID+`"}`, &pool)
	if string(pool.TopAxis[0]) != `"?"` {
		t.Errorf("reset top axis[0] = %s, want \"?\"", pool.TopAxis[0])
	}
}

func TestRpc_PrivatePoolInvite(t *testing.T) {
	nk := newFakeNakama()
	poolID := createPool(t, nk, "host", `{"name":"Private","hostName":"Dana","topTeam":"A","leftTeam":"B"}`)

	_, err := callRpc(t, nk, "guest", RpcGetPool, rpcGetPool, `{"pool_id":"`+poolID+`"}`)
	if code := errorCode(t, err); code != codePermissionDenied {
		t.Fatalf("code = %d, want %d", code, codePermissionDenied)
	}

	if _, err := callRpc(t, nk, "guest", RpcCreateInvite, rpcCreateInvite, `{"pool_id":"`+poolID+`"}`); err == nil {
		t.Fatal("only the admin may create invites")
	}

	var invite app.Invite
	mustRpc(t, nk, "host", RpcCreateInvite, rpcCreateInvite, `{"pool_id":"`+poolID+`"}`, &invite)
	if invite.Token == "" || invite.PoolID != poolID {
		t.Fatalf("invite = %+v", invite)
	}

	// Join codes are case-insensitive.
	var pool struct {
		ID string `json:"id"`
	}
	mustRpc(t, nk, "guest", RpcGetPool, rpcGetPool, `{"pool_id":" `+strings.ToLower(poolID)+` ","invite":"`+invite.Token+`"}`, &pool)
	if pool.ID != poolID {
		t.Errorf("pool id = %q, want %q", pool.ID, poolID)
	}
}

func TestRpc_ListPools(t *testing.T) {
	nk := newFakeNakama()
	public := createPool(t, nk, "host", autoPoolPayload)
	private := createPool(t, nk, "host", `{"name":"Private","hostName":"Dana","topTeam":"A","leftTeam":"B"}`)
	createPool(t, nk, "other", `{"name":"Theirs","hostName":"Lee","topTeam":"A","leftTeam":"B"}`)

	var resp listPoolsResponse
	mustRpc(t, nk, "host", RpcListPools, rpcListPools, ``, &resp)
	var ids []string
	for _, p := range resp.Pools {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)
	want := []string{public, private}
	sort.Strings(want)
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("listed pools mismatch (-want +got):\n%s", diff)
	}
}

func TestRpcWatchPool_CreatesThenReusesLiveMatch(t *testing.T) {
	nk := newFakeNakama()
	poolID := createPool(t, nk, "host", autoPoolPayload)

	var first, second WatchPoolResponse
	mustRpc(t, nk, "guest", RpcWatchPool, rpcWatchPool, `{"pool_id":"`+poolID+`"}`, &first)
	mustRpc(t, nk, "guest", RpcWatchPool, rpcWatchPool, `{"pool_id":"`+poolID+`"}`, &second)

	if !first.IsNew || second.IsNew {
		t.Errorf("is_new = %t, %t; want true, false", first.IsNew, second.IsNew)
	}
	if first.MatchID == "" || first.MatchID != second.MatchID {
		t.Errorf("match ids = %q, %q", first.MatchID, second.MatchID)
	}
	if len(nk.createParams) != 1 || nk.createParams[0]["pool_id"] != poolID {
		t.Errorf("MatchCreate params = %v", nk.createParams)
	}

	private := createPool(t, nk, "host", `{"name":"Private","hostName":"Dana","topTeam":"A","leftTeam":"B"}`)
	_, err := callRpc(t, nk, "guest", RpcWatchPool, rpcWatchPool, `{"pool_id":"`+private+`"}`)
	if code := errorCode(t, err); code != codePermissionDenied {
		t.Fatalf("code = %d, want %d", code, codePermissionDenied)
	}
}

func TestRpc_MutationSignalsLiveMatch(t *testing.T) {
	nk := newFakeNakama()
	poolID := createPool(t, nk, "host", autoPoolPayload)

	// Without a live match nothing is signalled.
	mustRpc(t, nk, "host", RpcAssignSquares, rpcAssignSquares, `{"pool_id":"`+poolID+`","name":"Ann","count":1}`, nil)
	if len(nk.signals) != 0 {
		t.Fatalf("signals = %d before any watcher", len(nk.signals))
	}

	var watch WatchPoolResponse
	mustRpc(t, nk, "guest", RpcWatchPool, rpcWatchPool, `{"pool_id":"`+poolID+`"}`, &watch)
	mustRpc(t, nk, "host", RpcAssignSquares, rpcAssignSquares, `{"pool_id":"`+poolID+`","name":"Bo","count":2}`, nil)

	if len(nk.signals) != 1 || nk.signals[0].matchID != watch.MatchID {
		t.Fatalf("signals = %+v", nk.signals)
	}
	var update ports.PoolUpdate
	if err := json.Unmarshal([]byte(nk.signals[0].data), &update); err != nil {
		t.Fatalf("unmarshal signal: %v", err)
	}
	if update.PoolID != poolID || update.Kind != ports.UpdateSquares || len(update.Assigned) != 2 {
		t.Errorf("update = %+v", update)
	}
}

type fakeInitializer struct {
	runtime.Initializer
	rpcs    []string
	matches []string
	hooks   int
}

func (f *fakeInitializer) RegisterRpc(id string, fn func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)) error {
	f.rpcs = append(f.rpcs, id)
	return nil
}

func (f *fakeInitializer) RegisterMatch(name string, fn func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error)) error {
	f.matches = append(f.matches, name)
	return nil
}

func (f *fakeInitializer) RegisterAfterAuthenticateDevice(fn func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error) error {
	f.hooks++
	return nil
}

func (f *fakeInitializer) RegisterAfterAuthenticateEmail(fn func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateEmailRequest) error) error {
	f.hooks++
	return nil
}

func TestInitModule_RegistersEverything(t *testing.T) {
	initializer := &fakeInitializer{}
	if err := InitModule(userCtx(""), noopLogger{}, nil, newFakeNakama(), initializer); err != nil {
		t.Fatalf("InitModule() error = %v", err)
	}
	if len(initializer.rpcs) != 16 {
		t.Errorf("registered %d rpcs, want 16: %v", len(initializer.rpcs), initializer.rpcs)
	}
	if diff := cmp.Diff([]string{MatchNamePoolLive}, initializer.matches); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
	if initializer.hooks != 2 {
		t.Errorf("hooks = %d, want 2", initializer.hooks)
	}
}

func keyStrings[K ~string](keys []K) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
