package nakama

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode     int64
	data       []byte
	recipients []string
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	sent         []sentMessage
	labelUpdates int
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	msg := sentMessage{opCode: opCode, data: append([]byte(nil), data...)}
	for _, p := range presences {
		msg.recipients = append(msg.recipients, p.GetUserId())
	}
	md.sent = append(md.sent, msg)
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	return nil
}

func (md *mockDispatcher) last() sentMessage {
	if len(md.sent) == 0 {
		return sentMessage{}
	}
	return md.sent[len(md.sent)-1]
}

// fakePresence overrides the presence fields the live match reads.
type fakePresence struct {
	runtime.Presence
	userID string
}

func (p fakePresence) GetUserId() string    { return p.userID }
func (p fakePresence) GetSessionId() string { return "session-" + p.userID }

type fakeMatchData struct {
	runtime.MatchData
	userID string
	opCode int64
	data   []byte
}

func (m fakeMatchData) GetUserId() string    { return m.userID }
func (m fakeMatchData) GetSessionId() string { return "session-" + m.userID }
func (m fakeMatchData) GetOpCode() int64     { return m.opCode }
func (m fakeMatchData) GetData() []byte      { return m.data }

type matchSignal struct {
	matchID string
	data    string
}

type accountUpdate struct {
	userID      string
	displayName string
}

// fakeNakama keeps storage, matches and accounts in memory. Methods not
// overridden panic through the nil embedded interface.
type fakeNakama struct {
	runtime.NakamaModule

	mu      sync.Mutex
	objects map[string]*api.StorageObject
	seq     int

	// live maps a label query to a match id.
	live         map[string]string
	createParams []map[string]interface{}
	signals      []matchSignal

	accountUpdates   []accountUpdate
	accountUpdateErr error
}

func newFakeNakama() *fakeNakama {
	return &fakeNakama{
		objects: map[string]*api.StorageObject{},
		live:    map[string]string{},
	}
}

func storageID(collection, userID, key string) string {
	return collection + "/" + userID + "/" + key
}

func (f *fakeNakama) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*api.StorageObject
	for _, r := range reads {
		if obj, ok := f.objects[storageID(r.Collection, r.UserID, r.Key)]; ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (f *fakeNakama) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range writes {
		existing, ok := f.objects[storageID(w.Collection, w.UserID, w.Key)]
		switch {
		case w.Version == "*" && ok:
			return nil, runtime.ErrStorageRejectedVersion
		case w.Version != "" && w.Version != "*" && (!ok || existing.GetVersion() != w.Version):
			return nil, runtime.ErrStorageRejectedVersion
		}
	}

	acks := make([]*api.StorageObjectAck, 0, len(writes))
	for _, w := range writes {
		f.seq++
		version := "v" + strconv.Itoa(f.seq)
		f.objects[storageID(w.Collection, w.UserID, w.Key)] = &api.StorageObject{
			Collection:      w.Collection,
			Key:             w.Key,
			UserId:          w.UserID,
			Value:           w.Value,
			Version:         version,
			PermissionRead:  int32(w.PermissionRead),
			PermissionWrite: int32(w.PermissionWrite),
			UpdateTime:      timestamppb.Now(),
		}
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key, UserId: w.UserID, Version: version})
	}
	return acks, nil
}

func (f *fakeNakama) StorageList(ctx context.Context, callerID, userID, collection string, limit int, cursor string) ([]*api.StorageObject, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*api.StorageObject
	for _, obj := range f.objects {
		if obj.GetCollection() == collection && obj.GetUserId() == userID {
			all = append(all, obj)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].GetKey() < all[j].GetKey() })

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", err
		}
		start = n
	}
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	next := ""
	if end < len(all) {
		next = strconv.Itoa(end)
	}
	return all[start:end], next, nil
}

func (f *fakeNakama) MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.live[query]; ok {
		return []*api.Match{{MatchId: id, Authoritative: true}}, nil
	}
	return nil, nil
}

func (f *fakeNakama) MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	poolID, _ := params["pool_id"].(string)
	id := "match-" + poolID
	f.live[liveLabelQuery(poolID)] = id
	f.createParams = append(f.createParams, params)
	return id, nil
}

func (f *fakeNakama) MatchSignal(ctx context.Context, id string, data string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, matchSignal{matchID: id, data: data})
	return "ok", nil
}

func (f *fakeNakama) AccountUpdateId(ctx context.Context, userID, username string, metadata map[string]interface{}, displayName, timezone, location, langTag, avatarUrl string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accountUpdateErr != nil {
		return f.accountUpdateErr
	}
	f.accountUpdates = append(f.accountUpdates, accountUpdate{userID: userID, displayName: displayName})
	return nil
}

// userCtx is a request context for userID with the invite secret configured.
func userCtx(userID string) context.Context {
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_ENV, map[string]string{
		EnvInviteSecret: "test-secret",
	})
	if userID != "" {
		ctx = context.WithValue(ctx, runtime.RUNTIME_CTX_USER_ID, userID)
	}
	return ctx
}
