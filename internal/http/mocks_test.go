package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"taskhub/internal/domain"
	"taskhub/internal/repository"
	"taskhub/internal/service"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrConflict
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) Update(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.usersByID[user.ID]; !ok {
		return repository.ErrNotFound
	}
	m.usersByID[user.ID] = user
	return nil
}

type mockTokenRepo struct {
	mu      sync.Mutex
	records map[string]domain.VerificationToken
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{records: make(map[string]domain.VerificationToken)}
}

func (m *mockTokenRepo) Create(_ context.Context, token domain.VerificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.UserID == token.UserID {
			return repository.ErrConflict
		}
	}
	m.records[token.ID] = token
	return nil
}

func (m *mockTokenRepo) GetByUserAndToken(_ context.Context, userID, token string) (domain.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.UserID == userID && r.Token == token {
			return r, nil
		}
	}
	return domain.VerificationToken{}, repository.ErrNotFound
}

func (m *mockTokenRepo) GetByUser(_ context.Context, userID string) (domain.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.UserID == userID {
			return r, nil
		}
	}
	return domain.VerificationToken{}, repository.ErrNotFound
}

func (m *mockTokenRepo) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *mockTokenRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.records {
		if r.ExpiresAt.Before(before) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

type mockEmailSender struct {
	mu       sync.Mutex
	lastTo   string
	lastHTML string
	err      error
}

func (m *mockEmailSender) Send(_ context.Context, to, _ string, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTo = to
	m.lastHTML = html
	return m.err
}

// lastToken extrae el token del enlace del ultimo correo.
func (m *mockEmailSender) lastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := strings.Index(m.lastHTML, "token=")
	if idx < 0 {
		return ""
	}
	rest := m.lastHTML[idx+len("token="):]
	if end := strings.IndexByte(rest, '"'); end >= 0 {
		return rest[:end]
	}
	return rest
}

type mockGate struct {
	denied bool
	lastIP string
}

func (m *mockGate) Protect(_ context.Context, req service.ProtectRequest) (service.Decision, error) {
	m.lastIP = req.ClientIP
	return service.GateDecision{Denied: m.denied}, nil
}

type mockPinger struct {
	err error
}

func (m mockPinger) Ping(context.Context) error {
	return m.err
}

func performRequest(r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}
