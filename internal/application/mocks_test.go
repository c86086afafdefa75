package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

type factKey struct {
	accountID int64
	targetID  string
}

// mockStore implements ports.Store in memory
type mockStore struct {
	mu         sync.Mutex
	accounts   []domain.Account
	identities map[string]string
	blocks     map[factKey]bool
	follows    map[factKey]bool
	privates   map[string]bool
	listErr    error
}

func newMockStore(priorities ...int) *mockStore {
	s := &mockStore{
		identities: make(map[string]string),
		blocks:     make(map[factKey]bool),
		follows:    make(map[factKey]bool),
		privates:   make(map[string]bool),
	}
	for i, p := range priorities {
		id := int64(i + 1)
		s.accounts = append(s.accounts, domain.Account{ID: id, Priority: p, Credentials: credsFor(id)})
	}
	return s
}

// credsFor encodes the account id in the auth token so the mock upstream can tell accounts apart
func credsFor(id int64) domain.Credentials {
	return domain.Credentials{
		AuthToken:   fmt.Sprintf("%040d", id),
		CSRFToken:   fmt.Sprintf("%0160d", id),
		BearerToken: fmt.Sprintf("Bearer %0104d", id),
	}
}

func accountOf(creds domain.Credentials) int64 {
	id, _ := strconv.ParseInt(creds.AuthToken, 10, 64)
	return id
}

func (s *mockStore) AddAccount(ctx context.Context, priority int, creds domain.Credentials) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := domain.Account{ID: int64(len(s.accounts) + 1), Priority: priority, Credentials: creds}
	s.accounts = append(s.accounts, a)
	return &a, nil
}

func (s *mockStore) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Account, len(s.accounts))
	copy(out, s.accounts)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Priority < out[j-1].Priority; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (s *mockStore) RemoveAccount(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.accounts {
		if a.ID == id {
			s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
			return nil
		}
	}
	return domain.ErrAccountNotFound
}

func (s *mockStore) CountAccounts(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts), nil
}

func (s *mockStore) set(m map[factKey]bool, accountID int64, targetID string, v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		m[factKey{accountID, targetID}] = true
	} else {
		delete(m, factKey{accountID, targetID})
	}
	return nil
}

func (s *mockStore) AssertBlock(ctx context.Context, a int64, t string) error {
	return s.set(s.blocks, a, t, true)
}
func (s *mockStore) RetractBlock(ctx context.Context, a int64, t string) error {
	return s.set(s.blocks, a, t, false)
}
func (s *mockStore) AssertFollow(ctx context.Context, a int64, t string) error {
	return s.set(s.follows, a, t, true)
}
func (s *mockStore) RetractFollow(ctx context.Context, a int64, t string) error {
	return s.set(s.follows, a, t, false)
}

func (s *mockStore) AssertPrivate(ctx context.Context, t string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.privates[t] = true
	return nil
}

func (s *mockStore) RetractPrivate(ctx context.Context, t string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.privates, t)
	return nil
}

func (s *mockStore) CandidatesFor(ctx context.Context, targetID string) ([]domain.Candidate, error) {
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Candidate
	for _, a := range accounts {
		facts := domain.Facts{
			Blocked: s.blocks[factKey{a.ID, targetID}],
			Private: s.privates[targetID],
			Follows: s.follows[factKey{a.ID, targetID}],
		}
		out = append(out, domain.Candidate{Account: a, Valid: facts.Valid()})
	}
	domain.SortCandidates(out)
	return out, nil
}

func (s *mockStore) TargetID(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.identities[domain.NormalizeName(name)]; ok {
		return id, nil
	}
	return "", domain.ErrCacheMiss
}

func (s *mockStore) PutTargetID(ctx context.Context, name, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[domain.NormalizeName(name)] = targetID
	return nil
}

func (s *mockStore) ListIdentities(ctx context.Context) ([]ports.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.Identity
	for name, id := range s.identities {
		out = append(out, ports.Identity{Name: name, TargetID: id})
	}
	return out, nil
}

func (s *mockStore) ClearIdentities(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.identities)
	s.identities = make(map[string]string)
	return n, nil
}

func (s *mockStore) Close() error { return nil }

type upstreamCall struct {
	op        string
	accountID int64
	arg       string
}

// mockUpstream dispatches each operation to a per-test function keyed by account id
type mockUpstream struct {
	mu    sync.Mutex
	calls []upstreamCall

	byName func(accountID int64, name string) (*ports.UserLookup, error)
	byID   func(accountID int64, targetID string) (*ports.UserLookup, error)
	media  func(accountID int64, targetID, cursor string) (*ports.MediaTimeline, error)
	item   func(accountID int64, itemID string) (*ports.ItemLookup, error)

	// slow accounts never answer; their calls end when the call context does
	slow map[int64]bool
}

func (m *mockUpstream) record(op string, creds domain.Credentials, arg string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := accountOf(creds)
	m.calls = append(m.calls, upstreamCall{op: op, accountID: id, arg: arg})
	return id
}

func (m *mockUpstream) stall(ctx context.Context, accountID int64) {
	if m.slow[accountID] {
		<-ctx.Done()
	}
}

func (m *mockUpstream) accountsCalled(op string) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, c := range m.calls {
		if c.op == op {
			ids = append(ids, c.accountID)
		}
	}
	return ids
}

func (m *mockUpstream) calledWith(accountID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c.accountID == accountID {
			return true
		}
	}
	return false
}

func (m *mockUpstream) UserByScreenName(ctx context.Context, creds domain.Credentials, name string) (*ports.UserLookup, error) {
	id := m.record("byName", creds, name)
	m.stall(ctx, id)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.byName == nil {
		return nil, domain.ErrNetworkFailure
	}
	return m.byName(id, name)
}

func (m *mockUpstream) UserByRestID(ctx context.Context, creds domain.Credentials, targetID string) (*ports.UserLookup, error) {
	id := m.record("byID", creds, targetID)
	m.stall(ctx, id)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.byID == nil {
		return nil, domain.ErrNetworkFailure
	}
	return m.byID(id, targetID)
}

func (m *mockUpstream) UserMedia(ctx context.Context, creds domain.Credentials, targetID, cursor string) (*ports.MediaTimeline, error) {
	id := m.record("media", creds, targetID+"@"+cursor)
	m.stall(ctx, id)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.media == nil {
		return nil, domain.ErrNetworkFailure
	}
	return m.media(id, targetID, cursor)
}

func (m *mockUpstream) ItemByRestID(ctx context.Context, creds domain.Credentials, itemID string) (*ports.ItemLookup, error) {
	id := m.record("item", creds, itemID)
	m.stall(ctx, id)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.item == nil {
		return nil, domain.ErrNetworkFailure
	}
	return m.item(id, itemID)
}

// mockTracker suppresses until cleared; window behaviour is covered by the ratelimit adapter
type mockTracker struct {
	mu         sync.Mutex
	suppressed map[int64]bool
}

func newMockTracker(ids ...int64) *mockTracker {
	t := &mockTracker{suppressed: make(map[int64]bool)}
	for _, id := range ids {
		t.suppressed[id] = true
	}
	return t
}

func (t *mockTracker) Suppress(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suppressed[id] = true
}

func (t *mockTracker) IsSuppressed(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suppressed[id]
}

type mockResults struct {
	mu      sync.Mutex
	entries map[string]json.RawMessage
}

func newMockResults() *mockResults {
	return &mockResults{entries: make(map[string]json.RawMessage)}
}

func (r *mockResults) Put(id string, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = payload
}

func (r *mockResults) Take(id string) (json.RawMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[id]
	delete(r.entries, id)
	return p, ok
}

func (r *mockResults) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *mockResults) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]json.RawMessage)
}

type mockRecache struct {
	mu      sync.Mutex
	entries map[string]domain.RecacheEntry
}

func newMockRecache() *mockRecache {
	return &mockRecache{entries: make(map[string]domain.RecacheEntry)}
}

func (r *mockRecache) Record(id string, e domain.RecacheEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = e
}

func (r *mockRecache) Lookup(id string) (domain.RecacheEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

func (r *mockRecache) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *mockRecache) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]domain.RecacheEntry)
}

type recordingDiagnostics struct {
	mu      sync.Mutex
	records []ports.Diagnostic
}

func (r *recordingDiagnostics) Record(ctx context.Context, d ports.Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, d)
}

func (r *recordingDiagnostics) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, d := range r.records {
		out = append(out, d.Event)
	}
	return out
}

// fixture bundles a fetcher with its collaborators
type fixture struct {
	store    *mockStore
	upstream *mockUpstream
	tracker  *mockTracker
	results  *mockResults
	recache  *mockRecache
	diag     *recordingDiagnostics
	fetcher  *Fetcher
}

func newFixture(t *testing.T, priorities ...int) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMockStore(priorities...),
		upstream: &mockUpstream{},
		tracker:  newMockTracker(),
		results:  newMockResults(),
		recache:  newMockRecache(),
		diag:     &recordingDiagnostics{},
	}
	f.withCallTimeout(time.Second)
	return f
}

// withCallTimeout rebuilds the fetcher with a different per-call upstream timeout
func (f *fixture) withCallTimeout(d time.Duration) {
	f.fetcher = NewFetcher(f.store, f.upstream, f.tracker, NewItemCache(f.results, f.recache), f.diag, d)
}

func userFound(targetID string, s domain.Signals) *ports.UserLookup {
	return &ports.UserLookup{
		Status:  ports.StatusFound,
		Result:  domain.RawItem{Typename: "User", Payload: json.RawMessage(`{"__typename":"User"}`)},
		ID:      targetID,
		Signals: s,
	}
}

func userUnavailable(message string) domain.RawItem {
	return domain.RawItem{
		Typename: "UserUnavailable",
		Payload:  json.RawMessage(fmt.Sprintf(`{"__typename":"UserUnavailable","message":%q}`, message)),
	}
}

func itemPayload(id string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"__typename":"Tweet","rest_id":%q}`, id))
}

func mediaFound(bottom string, ids ...string) *ports.MediaTimeline {
	tl := &ports.MediaTimeline{
		Status:       ports.StatusFound,
		Result:       domain.RawItem{Typename: "User", Payload: json.RawMessage(`{}`)},
		BottomCursor: bottom,
	}
	for _, id := range ids {
		tl.Items = append(tl.Items, domain.RawItem{Typename: "Tweet", Payload: itemPayload(id)})
	}
	return tl
}
