package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kirinyoku/tabgo/internal/domain"
	redisrepo "github.com/kirinyoku/tabgo/internal/repository/redis"
	"github.com/kirinyoku/tabgo/internal/service/checks"
	"github.com/kirinyoku/tabgo/internal/service/ledger"
)

type fakeTokens struct{}

func (fakeTokens) Parse(raw string) (domain.Staff, error) {
	switch raw {
	case "srv":
		return domain.Staff{Email: "srv@example.com", Role: domain.RoleServer}, nil
	case "mgr":
		return domain.Staff{Email: "mgr@example.com", Role: domain.RoleManager}, nil
	case "adm":
		return domain.Staff{Email: "adm@example.com", Role: domain.RoleAdmin}, nil
	}
	return domain.Staff{}, errors.New("bad token")
}

type fakeDevices map[string]bool

func (f fakeDevices) Trusted(_ context.Context, id string) (bool, error) { return f[id], nil }

type fakeLimiter struct{ allow bool }

func (f fakeLimiter) Allow(context.Context, string) (redisrepo.Decision, error) {
	if f.allow {
		return redisrepo.Decision{Allowed: true, Count: 1, Remaining: 9}, nil
	}
	return redisrepo.Decision{Allowed: false, Count: 11, RetryAfter: 1500 * time.Millisecond}, nil
}

func (fakeLimiter) Limit() int { return 10 }

type fakeChecks struct {
	check     domain.Check
	created   bool
	updateErr error
	getErr    error
}

func (f *fakeChecks) EnsureForTables(_ context.Context, _ domain.Staff, ids []string) (*domain.Check, bool, error) {
	c := f.check
	c.TableIDs = ids
	return &c, f.created, nil
}

func (f *fakeChecks) Get(context.Context, uuid.UUID) (*domain.CheckDetail, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &domain.CheckDetail{Check: f.check}, nil
}

func (f *fakeChecks) Update(context.Context, domain.Staff, uuid.UUID, domain.CheckPatch) (*domain.Check, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	c := f.check
	c.Revision++
	return &c, nil
}

type fakeLedger struct {
	mu       sync.Mutex
	adds     int
	lastQty  *int
	removed  bool
	lastRevs []*int64
}

func (f *fakeLedger) AddLine(_ context.Context, checkID uuid.UUID, in domain.NewLine) (*ledger.LineResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds++
	f.lastQty = in.Qty
	line := &domain.CheckLine{ID: uuid.New(), CheckID: checkID, Name: in.Name, Seat: in.Seat, Price: in.Price, Qty: 1}
	return &ledger.LineResult{Line: line, Check: domain.Check{ID: checkID, Revision: int64(1 + f.adds)}}, nil
}

func (f *fakeLedger) UpdateLine(_ context.Context, _ domain.Staff, checkID uuid.UUID, p domain.LinePatch) (*ledger.LineResult, error) {
	if f.removed {
		return &ledger.LineResult{Removed: true, Check: domain.Check{ID: checkID, Revision: 7}}, nil
	}
	return &ledger.LineResult{Line: &domain.CheckLine{ID: p.LineID}, Check: domain.Check{ID: checkID, Revision: 7}}, nil
}

func (f *fakeLedger) ClearLines(_ context.Context, checkID uuid.UUID, expected *int64) (*domain.Check, error) {
	f.lastRevs = append(f.lastRevs, expected)
	return &domain.Check{ID: checkID, Revision: 9}, nil
}

type fakeTables struct{}

func (fakeTables) Board(context.Context) ([]domain.Table, error) {
	return []domain.Table{{ID: "T1", Status: domain.TableOpen}}, nil
}

func (fakeTables) SetStatus(_ context.Context, id string, s domain.TableStatus) (*domain.Table, error) {
	return &domain.Table{ID: id, Status: s}, nil
}

type fakeMenu struct{}

func (fakeMenu) Get(_ context.Context, id string) (*domain.MenuItem, error) {
	return &domain.MenuItem{ID: id, Name: "Soup", Price: 900, Available: true}, nil
}

type fakeAdmin struct{ err error }

func (f fakeAdmin) UpsertTables(context.Context, []domain.Table) error       { return f.err }
func (f fakeAdmin) UpsertMenuItems(context.Context, []domain.MenuItem) error { return f.err }
func (f fakeAdmin) TrustDevices(context.Context, []string) error             { return f.err }

type memIdem struct {
	mu      sync.Mutex
	locks   map[string]bool
	results map[string]string
}

func newMemIdem() *memIdem {
	return &memIdem{locks: map[string]bool{}, results: map[string]string{}}
}

func (m *memIdem) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *memIdem) SaveResult(_ context.Context, key, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key] = payload
	return nil
}

func (m *memIdem) GetResult(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.results[key]
	return v, ok, nil
}

func (m *memIdem) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

func testDeps() Deps {
	return Deps{
		Checks:  &fakeChecks{check: domain.Check{ID: uuid.New(), Status: domain.CheckOpen, Revision: 1}, created: true},
		Ledger:  &fakeLedger{},
		Tables:  fakeTables{},
		Menu:    fakeMenu{},
		Admin:   fakeAdmin{},
		Tokens:  fakeTokens{},
		Devices: fakeDevices{"pos-1": true},
		Limiter: fakeLimiter{allow: true},
		Idem:    newMemIdem(),
	}
}

func do(t *testing.T, r http.Handler, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set(headerDeviceID, "pos-1")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouter_Auth(t *testing.T) {
	r := NewRouter(testDeps(), zap.NewNop())

	w := do(t, r, http.MethodGet, "/tables", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/tables", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/tables", "srv", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_DeviceGate(t *testing.T) {
	r := NewRouter(testDeps(), zap.NewNop())

	w := do(t, r, http.MethodPost, "/checks", "srv", EnsureCheckRequest{TableIDs: []string{"T1"}},
		headerDeviceID, "stolen-tablet")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "untrusted_device", decodeErr(t, w).Code)

	// reads are not gated
	w = do(t, r, http.MethodGet, "/tables", "srv", nil, headerDeviceID, "stolen-tablet")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AdminRequiresAdminRole(t *testing.T) {
	r := NewRouter(testDeps(), zap.NewNop())
	body := TrustDevicesRequest{DeviceIDs: []string{"pos-2"}}

	w := do(t, r, http.MethodPost, "/admin/devices", "mgr", body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPost, "/admin/devices", "adm", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp CountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Saved)
}

func TestRouter_EnsureCheck(t *testing.T) {
	d := testDeps()
	r := NewRouter(d, zap.NewNop())

	w := do(t, r, http.MethodPost, "/checks", "srv", EnsureCheckRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/checks", "srv", EnsureCheckRequest{TableIDs: []string{"T1", "T2"}})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", w.Header().Get(headerRevision))

	d.Checks.(*fakeChecks).created = false
	w = do(t, r, http.MethodPost, "/checks", "srv", EnsureCheckRequest{TableIDs: []string{"T1", "T2"}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_UpdateCheckErrors(t *testing.T) {
	rev := int64(4)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"revision", checks.ErrRevisionConflict, http.StatusConflict, "revision_conflict"},
		{"closed", checks.ErrCheckClosed, http.StatusConflict, "check_closed"},
		{"not found", checks.ErrCheckNotFound, http.StatusNotFound, "not_found"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"validation", domain.Invalid("currentCourse", "must not be blank"), http.StatusBadRequest, "validation"},
		{"unknown", errors.New("pool exhausted"), http.StatusInternalServerError, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := testDeps()
			d.Checks.(*fakeChecks).updateErr = tc.err
			r := NewRouter(d, zap.NewNop())

			w := do(t, r, http.MethodPatch, "/checks/"+uuid.NewString(), "srv",
				UpdateCheckRequest{ExpectedRevision: &rev})
			require.Equal(t, tc.status, w.Code)

			e := decodeErr(t, w)
			assert.Equal(t, tc.code, e.Code)
			if tc.status == http.StatusInternalServerError {
				assert.NotContains(t, e.Error, "pool exhausted")
			}
		})
	}
}

func TestRouter_UpdateCheckRequiresRevision(t *testing.T) {
	r := NewRouter(testDeps(), zap.NewNop())

	w := do(t, r, http.MethodPatch, "/checks/"+uuid.NewString(), "srv", map[string]any{"currentCourse": "mains"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPatch, "/checks/not-a-uuid", "srv", map[string]any{"expectedRevision": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPatch, "/checks/"+uuid.NewString(), "srv",
		map[string]any{"expectedRevision": 1, "status": "settled"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_AddLineIdempotent(t *testing.T) {
	d := testDeps()
	r := NewRouter(d, zap.NewNop())
	path := "/checks/" + uuid.NewString() + "/lines"
	body := AddLineRequest{Name: "Steak", Seat: "1", Price: 2700}

	first := do(t, r, http.MethodPost, path, "srv", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "2", first.Header().Get(headerRevision))

	second := do(t, r, http.MethodPost, path, "srv", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "2", second.Header().Get(headerRevision))
	assert.Equal(t, 1, d.Ledger.(*fakeLedger).adds)

	// no key means no dedup
	third := do(t, r, http.MethodPost, path, "srv", body)
	require.Equal(t, http.StatusCreated, third.Code)
	assert.Equal(t, 2, d.Ledger.(*fakeLedger).adds)
}

func TestRouter_AddLineValidation(t *testing.T) {
	r := NewRouter(testDeps(), zap.NewNop())
	path := "/checks/" + uuid.NewString() + "/lines"

	w := do(t, r, http.MethodPost, path, "srv", map[string]any{"seat": "1", "price": 100})
	assert.Equal(t, http.StatusBadRequest, w.Code, "name is required without a menu item")

	w = do(t, r, http.MethodPost, path, "srv", map[string]any{"seat": "1", "menuItemId": "soup"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRouter_AddLineRejectsBadAmounts(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"explicit zero qty", `{"seat":"1","name":"Tea","price":2.5,"qty":0}`},
		{"negative qty", `{"seat":"1","name":"Tea","price":2.5,"qty":-3}`},
		{"qty over limit", `{"seat":"1","name":"Tea","price":2.5,"qty":10001}`},
		{"price over limit", `{"seat":"1","name":"Tea","price":1000000.01}`},
		{"sub-cent price", `{"seat":"1","name":"Tea","price":4.505}`},
		{"price beyond int64", `{"seat":"1","name":"Tea","price":100000000000000000000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDeps()
			r := NewRouter(d, zap.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/checks/"+uuid.NewString()+"/lines", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer srv")
			req.Header.Set(headerDeviceID, "pos-1")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, d.Ledger.(*fakeLedger).adds)
		})
	}
}

func TestRouter_AddLineQtyIsOptional(t *testing.T) {
	d := testDeps()
	r := NewRouter(d, zap.NewNop())
	path := "/checks/" + uuid.NewString() + "/lines"

	w := do(t, r, http.MethodPost, path, "srv", map[string]any{"seat": "1", "name": "Tea", "price": 2.5})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, d.Ledger.(*fakeLedger).lastQty)

	w = do(t, r, http.MethodPost, path, "srv", map[string]any{"seat": "1", "name": "Tea", "price": 2.5, "qty": 3})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, d.Ledger.(*fakeLedger).lastQty)
	assert.Equal(t, 3, *d.Ledger.(*fakeLedger).lastQty)
}

func TestRouter_UpdateLine(t *testing.T) {
	d := testDeps()
	r := NewRouter(d, zap.NewNop())
	path := "/checks/" + uuid.NewString() + "/lines"

	w := do(t, r, http.MethodPatch, path, "srv", map[string]any{"lineId": uuid.NewString(), "splitMode": "thirds"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPatch, path, "srv", map[string]any{"lineId": uuid.NewString(), "qty": 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", w.Header().Get(headerRevision))

	d.Ledger.(*fakeLedger).removed = true
	w = do(t, r, http.MethodPatch, path, "srv", map[string]any{"lineId": uuid.NewString(), "qty": 0})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "7", w.Header().Get(headerRevision))
	assert.Empty(t, w.Body.String())
}

func TestRouter_ClearLines(t *testing.T) {
	d := testDeps()
	r := NewRouter(d, zap.NewNop())
	path := "/checks/" + uuid.NewString() + "/lines"

	w := do(t, r, http.MethodDelete, path+"?expectedRevision=zero", "srv", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodDelete, path+"?expectedRevision=3", "srv", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "9", w.Header().Get(headerRevision))

	w = do(t, r, http.MethodDelete, path, "srv", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	revs := d.Ledger.(*fakeLedger).lastRevs
	require.Len(t, revs, 2)
	require.NotNil(t, revs[0])
	assert.Equal(t, int64(3), *revs[0])
	assert.Nil(t, revs[1])
}

func TestRouter_RateLimited(t *testing.T) {
	d := testDeps()
	d.Limiter = fakeLimiter{allow: false}
	r := NewRouter(d, zap.NewNop())

	w := do(t, r, http.MethodPost, "/checks", "srv", EnsureCheckRequest{TableIDs: []string{"T1"}})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))

	// reads are not limited
	w = do(t, r, http.MethodGet, "/tables", "srv", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_GetCheckETag(t *testing.T) {
	r := NewRouter(testDeps(), zap.NewNop())
	path := "/checks/" + uuid.NewString()

	w := do(t, r, http.MethodGet, path, "srv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)
	assert.Equal(t, "1", w.Header().Get(headerRevision))

	w = do(t, r, http.MethodGet, path, "srv", nil, "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestRouter_SetTableStatus(t *testing.T) {
	r := NewRouter(testDeps(), zap.NewNop())

	w := do(t, r, http.MethodPut, "/tables/T1/status", "srv", SetTableStatusRequest{Status: "closed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPut, "/tables/T1/status", "srv", SetTableStatusRequest{Status: "paying"})
	require.Equal(t, http.StatusOK, w.Code)

	var tbl domain.Table
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tbl))
	assert.Equal(t, domain.TablePaying, tbl.Status)
}

func TestRouter_EventsWithoutFeed(t *testing.T) {
	r := NewRouter(testDeps(), zap.NewNop())

	w := do(t, r, http.MethodGet, "/checks/"+uuid.NewString()+"/events", "srv", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// scriptedFeed records when the subscription went live relative to check reads.
type scriptedFeed struct {
	mu     sync.Mutex
	events []string
	err    error
	send   []domain.CheckChanged
}

func (f *scriptedFeed) record(e string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *scriptedFeed) Subscribe(ctx context.Context, ready func(), handler func(context.Context, domain.CheckChanged)) error {
	if f.err != nil {
		return f.err
	}
	f.record("subscribed")
	ready()
	for _, ev := range f.send {
		handler(ctx, ev)
	}
	// end the feed so the stream closes on its own
	return errors.New("feed closed")
}

// streamRecorder lets gin's Stream watch for a client that never leaves.
type streamRecorder struct {
	*httptest.ResponseRecorder
}

func (streamRecorder) CloseNotify() <-chan bool { return make(chan bool) }

type orderedChecks struct {
	*fakeChecks
	feed *scriptedFeed
}

func (o orderedChecks) Get(ctx context.Context, id uuid.UUID) (*domain.CheckDetail, error) {
	o.feed.record("get")
	return o.fakeChecks.Get(ctx, id)
}

func TestRouter_EventsSubscribeFailure(t *testing.T) {
	d := testDeps()
	d.Feed = &scriptedFeed{err: errors.New("redis down")}
	r := NewRouter(d, zap.NewNop())

	w := do(t, r, http.MethodGet, "/checks/"+uuid.NewString()+"/events", "srv", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "change feed unavailable", decodeErr(t, w).Error)
}

func TestRouter_EventsSubscribesBeforeReadingRevision(t *testing.T) {
	d := testDeps()
	base := d.Checks.(*fakeChecks)
	base.check.Revision = 4
	id := base.check.ID

	feed := &scriptedFeed{send: []domain.CheckChanged{
		{CheckID: id, Revision: 4},
		{CheckID: uuid.New(), Revision: 9},
		{CheckID: id, Revision: 5},
	}}
	d.Feed = feed
	d.Checks = orderedChecks{fakeChecks: base, feed: feed}
	r := NewRouter(d, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/checks/"+id.String()+"/events", nil)
	req.Header.Set("Authorization", "Bearer srv")
	w := &streamRecorder{ResponseRecorder: httptest.NewRecorder()}
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"subscribed", "get"}, feed.events)

	body := w.Body.String()
	assert.Contains(t, body, "event:revision")
	assert.Contains(t, body, `"revision":5`)
	assert.NotContains(t, body, `"revision":9`)
	assert.Contains(t, body, "event:error")
}
