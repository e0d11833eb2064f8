package gymly

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymly/gymly/internal/access"
	"github.com/gymly/gymly/internal/config"
	"github.com/gymly/gymly/internal/models"
	"github.com/gymly/gymly/internal/storage"
)

type memoryStore struct {
	mu         sync.Mutex
	principals map[int64]models.Principal
	gyms       []models.Gym
	nextID     int64
	subWrites  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{principals: map[int64]models.Principal{}}
}

func (m *memoryStore) CreatePrincipal(_ context.Context, p models.Principal) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.principals {
		if existing.Email == p.Email {
			return 0, storage.ErrEmailTaken
		}
	}
	m.nextID++
	p.ID = m.nextID
	m.principals[p.ID] = p
	return p.ID, nil
}

func (m *memoryStore) GetPrincipal(_ context.Context, id int64) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.principals[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (m *memoryStore) GetPrincipalByEmail(_ context.Context, email string) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.principals {
		if p.Email == email {
			return &p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memoryStore) ListPrincipals(_ context.Context, limit, offset int) ([]*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Principal
	for id := int64(1); id <= m.nextID; id++ {
		if p, ok := m.principals[id]; ok {
			out = append(out, &p)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(len(out), offset+limit)], nil
}

func (m *memoryStore) update(id int64, fn func(p *models.Principal)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.principals[id]
	if !ok {
		return storage.ErrNotFound
	}
	fn(&p)
	m.principals[id] = p
	return nil
}

func (m *memoryStore) SetSubscriptionActive(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	m.subWrites++
	m.mu.Unlock()
	return m.update(id, func(p *models.Principal) { p.IsSubscriptionActive = active })
}

func (m *memoryStore) SetActive(_ context.Context, id int64, active bool) error {
	return m.update(id, func(p *models.Principal) { p.IsActive = active })
}

func (m *memoryStore) UpdateProfile(_ context.Context, id int64, name, email string) error {
	return m.update(id, func(p *models.Principal) { p.Name, p.Email = name, email })
}

func (m *memoryStore) DeletePrincipal(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.principals[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.principals, id)
	return nil
}

func (m *memoryStore) CreateGym(_ context.Context, g models.Gym) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = int64(len(m.gyms) + 1)
	m.gyms = append(m.gyms, g)
	return g.ID, nil
}

func (m *memoryStore) ListGyms(_ context.Context, ownerID int64, _, _ int) ([]models.Gym, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Gym{}
	for _, g := range m.gyms {
		if ownerID == 0 || g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memoryStore) PingContext(context.Context) error { return nil }

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testApp struct {
	router http.Handler
	store  *memoryStore
	clock  *testClock
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := &config.Config{
		PasswordCost: 4,
		Subscription: config.Subscription{TrialPeriod: 30 * 24 * time.Hour},
		RateLimit:    config.RateLimit{LoginRPS: 100, LoginBurst: 100},
		JWTToken:     config.JWTToken{JWTSecretKey: "test_secret", TokenTTL: 100 * 24 * time.Hour},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemoryStore()
	clock := &testClock{t: time.Now().UTC()}

	reg := prometheus.NewRegistry()
	services := buildServices(logger, cfg, store, store, nil, access.NewMetrics(reg), clock.Now)
	services.DB = store
	services.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	r := chi.NewRouter()
	RegisterRoutes(r, logger, services)
	return &testApp{router: r, store: store, clock: clock}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var resp map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func (a *testApp) login(t *testing.T, email, password string) string {
	t.Helper()
	code, resp := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, code, resp)
	return resp["data"].(map[string]any)["token"].(string)
}

func TestRoutes_GymOwnerTrialLifecycle(t *testing.T) {
	app := newTestApp(t)

	code, resp := app.do(t, http.MethodPost, "/api/v1/auth/signup/gym-owner", "",
		map[string]string{"name": "Owner", "email": "Owner@Example.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, code, resp)
	assert.Equal(t, true, resp["data"].(map[string]any)["is_subscription_active"])

	token := app.login(t, "owner@example.com", "secret123")

	code, _ = app.do(t, http.MethodPost, "/api/v1/gyms", token, map[string]string{"name": "Power Gym", "location": "New York"})
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 0, app.store.subWrites)

	code, resp = app.do(t, http.MethodGet, "/api/v1/gyms", token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["data"], 1)

	app.clock.Advance(31 * 24 * time.Hour)

	code, resp = app.do(t, http.MethodPost, "/api/v1/gyms", token, map[string]string{"name": "Second", "location": "Boston"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "subscription inactive, please subscribe to continue", resp["error"])
	assert.Equal(t, 1, app.store.subWrites)

	stored, err := app.store.GetPrincipal(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, stored.IsSubscriptionActive)

	code, _ = app.do(t, http.MethodGet, "/api/v1/gyms", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, 1, app.store.subWrites, "second denial must not write again")

	// профиль не требует подписки
	code, resp = app.do(t, http.MethodGet, "/api/v1/users/profile", token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, resp["data"].(map[string]any)["is_subscription_active"])

	code, resp = app.do(t, http.MethodGet, "/api/v1/gyms/all", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["data"], 1)
}

func TestRoutes_RoleGates(t *testing.T) {
	app := newTestApp(t)

	code, _ := app.do(t, http.MethodPost, "/api/v1/auth/signup", "",
		map[string]string{"name": "Alice", "email": "alice@example.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, code)
	userToken := app.login(t, "alice@example.com", "secret123")

	code, resp := app.do(t, http.MethodPost, "/api/v1/gyms", userToken, map[string]string{"name": "Gym", "location": "X"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "access denied", resp["error"])

	code, _ = app.do(t, http.MethodGet, "/api/v1/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = app.do(t, http.MethodGet, "/api/v1/users/1/profile", userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// повышение роли видно сразу, без перевыпуска токена
	require.NoError(t, app.store.update(1, func(p *models.Principal) { p.Role = models.RoleAdmin }))
	code, resp = app.do(t, http.MethodGet, "/api/v1/users", userToken, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["data"], 1)

	code, _ = app.do(t, http.MethodPost, "/api/v1/users/1/status", userToken, map[string]bool{"is_active": false})
	assert.Equal(t, http.StatusOK, code)

	code, resp = app.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "alice@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "account is disabled", resp["error"])

	code, _ = app.do(t, http.MethodDelete, "/api/v1/users/1", userToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp = app.do(t, http.MethodGet, "/api/v1/users/profile", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid or expired credential", resp["error"])
}

func TestRoutes_MissingCredential(t *testing.T) {
	app := newTestApp(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/users/profile"},
		{http.MethodPost, "/api/v1/gyms"},
		{http.MethodGet, "/api/v1/users"},
	} {
		code, resp := app.do(t, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, route.path)
		assert.Equal(t, "missing or invalid authorization header", resp["error"])
	}

	code, resp := app.do(t, http.MethodGet, "/api/v1/users/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid or expired credential", resp["error"])
}

func TestRoutes_MetricsAndHealth(t *testing.T) {
	app := newTestApp(t)

	app.do(t, http.MethodGet, "/api/v1/users/profile", "", nil)

	code, resp := app.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp["data"].(map[string]any)["status"])

	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gymly_access_decisions_total{outcome="missing_credential",policy="authenticated"} 1`)
}
