package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nephroinnovate/renal-console/internal/platform/session"
)

// testUpstream is a scripted platform API: a protected endpoint with a
// programmable status sequence plus a refresh endpoint.
type testUpstream struct {
	t              *testing.T
	server         *httptest.Server
	protectedCalls atomic.Int32
	refreshCalls   atomic.Int32
	refreshStatus  int
	// statuses consumed one per protected call; the last repeats.
	statuses []int
	lastAuth atomic.Value
}

func newTestUpstream(t *testing.T, statuses ...int) *testUpstream {
	u := &testUpstream{t: t, statuses: statuses, refreshStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		u.refreshCalls.Add(1)
		if u.refreshStatus != http.StatusOK {
			w.WriteHeader(u.refreshStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access": "T2"})
	})
	mux.HandleFunc("/fhir/Patient", func(w http.ResponseWriter, r *http.Request) {
		n := int(u.protectedCalls.Add(1))
		u.lastAuth.Store(r.Header.Get("Authorization"))
		idx := n - 1
		if idx >= len(u.statuses) {
			idx = len(u.statuses) - 1
		}
		status := u.statuses[idx]
		w.WriteHeader(status)
		if status == http.StatusOK {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"items": []map[string]interface{}{{"id": "p1"}},
				"total": 1,
			})
		}
	})
	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func (u *testUpstream) manager(s session.Session) *session.Manager {
	m := session.NewManager(session.NewMemStore(), func(ctx context.Context, refreshToken string) (string, error) {
		resp, err := http.Post(u.server.URL+"/auth/refresh", "application/json", nil)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", errors.New("refresh rejected")
		}
		var out struct {
			Access string `json:"access"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", err
		}
		return out.Access, nil
	})
	if err := m.Set(context.Background(), s); err != nil {
		u.t.Fatalf("seed session: %v", err)
	}
	return m
}

func (u *testUpstream) client(t *testing.T, m *session.Manager, onExpired func()) *Client {
	c, err := New(Config{
		BaseURL:       u.server.URL,
		Session:       m,
		Logger:        zerolog.Nop(),
		OnAuthExpired: onExpired,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestDo_AttachesBearerToken(t *testing.T) {
	up := newTestUpstream(t, http.StatusOK)
	m := up.manager(session.Session{AccessToken: "T1"})
	c := up.client(t, m, nil)

	res, err := c.Do(context.Background(), NewDescriptor(http.MethodGet, "/fhir/Patient"))
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if auth := up.lastAuth.Load(); auth != "Bearer T1" {
		t.Errorf("Authorization = %q, want Bearer T1", auth)
	}
	list := res.List()
	if list.Total != 1 || len(list.Items) != 1 {
		t.Errorf("unexpected normalized list: %+v", list)
	}
}

func TestDo_AnonymousRequestSkipsAuthHeader(t *testing.T) {
	up := newTestUpstream(t, http.StatusOK)
	m := up.manager(session.Session{AccessToken: "T1"})
	c := up.client(t, m, nil)

	_, err := c.Do(context.Background(), NewDescriptor(http.MethodGet, "/fhir/Patient").Anonymous())
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if auth := up.lastAuth.Load(); auth != "" {
		t.Errorf("Authorization = %q, want empty", auth)
	}
}

func TestDo_RefreshAndReplay(t *testing.T) {
	up := newTestUpstream(t, http.StatusUnauthorized, http.StatusOK)
	m := up.manager(session.Session{AccessToken: "T1", RefreshToken: "R1"})
	c := up.client(t, m, nil)

	res, err := c.Do(context.Background(), NewDescriptor(http.MethodGet, "/fhir/Patient"))
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.Status != http.StatusOK {
		t.Errorf("status = %d, want 200", res.Status)
	}
	if n := up.protectedCalls.Load(); n != 2 {
		t.Errorf("protected calls = %d, want 2", n)
	}
	if n := up.refreshCalls.Load(); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}
	if auth := up.lastAuth.Load(); auth != "Bearer T2" {
		t.Errorf("replay Authorization = %q, want Bearer T2", auth)
	}
	if m.AccessToken(context.Background()) != "T2" {
		t.Error("refreshed token not persisted")
	}
}

// The protected endpoint keeps returning 401 even after a
// successful refresh. Exactly two protected calls and one refresh call are
// made, the caller sees ErrAuthenticationExpired, and the session is gone.
func TestDo_PersistentUnauthorized(t *testing.T) {
	up := newTestUpstream(t, http.StatusUnauthorized)
	m := up.manager(session.Session{AccessToken: "T1", RefreshToken: "R1"})
	c := up.client(t, m, nil)

	_, err := c.Do(context.Background(), NewDescriptor(http.MethodGet, "/fhir/Patient"))
	if !errors.Is(err, ErrAuthenticationExpired) {
		t.Fatalf("expected ErrAuthenticationExpired, got %v", err)
	}
	if n := up.protectedCalls.Load(); n != 2 {
		t.Errorf("protected calls = %d, want 2", n)
	}
	if n := up.refreshCalls.Load(); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}
	if m.IsAuthenticated(context.Background()) {
		t.Error("session must be cleared after terminal 401")
	}
}

func TestDo_UnauthorizedWithoutRefreshToken(t *testing.T) {
	up := newTestUpstream(t, http.StatusUnauthorized)
	m := up.manager(session.Session{AccessToken: "T1"})
	c := up.client(t, m, nil)

	_, err := c.Do(context.Background(), NewDescriptor(http.MethodGet, "/fhir/Patient"))
	if !errors.Is(err, ErrAuthenticationExpired) {
		t.Fatalf("expected ErrAuthenticationExpired, got %v", err)
	}
	if n := up.protectedCalls.Load(); n != 1 {
		t.Errorf("protected calls = %d, want 1 (no refresh capability, no replay)", n)
	}
	if n := up.refreshCalls.Load(); n != 0 {
		t.Errorf("refresh calls = %d, want 0", n)
	}
	if m.IsAuthenticated(context.Background()) {
		t.Error("session must be cleared")
	}
}

func TestDo_RefreshFailureNotifiesAndClears(t *testing.T) {
	up := newTestUpstream(t, http.StatusUnauthorized)
	up.refreshStatus = http.StatusUnauthorized
	m := up.manager(session.Session{AccessToken: "T1", RefreshToken: "R1"})

	var notified atomic.Bool
	c := up.client(t, m, func() { notified.Store(true) })

	_, err := c.Do(context.Background(), NewDescriptor(http.MethodGet, "/fhir/Patient"))
	if !errors.Is(err, ErrAuthenticationExpired) {
		t.Fatalf("expected ErrAuthenticationExpired, got %v", err)
	}
	if !notified.Load() {
		t.Error("expected the login-redirect notification")
	}
	if m.IsAuthenticated(context.Background()) {
		t.Error("session must be cleared after failed refresh")
	}
	if n := up.protectedCalls.Load(); n != 1 {
		t.Errorf("protected calls = %d, want 1 (no replay after failed refresh)", n)
	}
}

func TestDo_RemoteError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/patients", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"mrn already registered"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	m := session.NewManager(session.NewMemStore(), nil)
	c, err := New(Config{BaseURL: server.URL, Session: m, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = c.Do(context.Background(), NewDescriptor(http.MethodPost, "/api/v1/patients"))
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected *RemoteError, got %v", err)
	}
	if remote.Status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", remote.Status)
	}
	if remote.Message != "mrn already registered" {
		t.Errorf("message = %q", remote.Message)
	}
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	m := session.NewManager(session.NewMemStore(), nil)
	c, err := New(Config{BaseURL: url, Session: m, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = c.Do(context.Background(), NewDescriptor(http.MethodGet, "/anything"))
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
	if errors.Is(err, ErrAuthenticationExpired) {
		t.Error("network failure must not be reported as expired auth")
	}
}

func TestDo_HooksRunInOrder(t *testing.T) {
	up := newTestUpstream(t, http.StatusOK)
	m := up.manager(session.Session{AccessToken: "T1"})
	c := up.client(t, m, nil)

	var order []string
	c.UseRequest(func(r *http.Request) {
		order = append(order, "req-1")
		r.Header.Set("X-Console-Client", "cli")
	})
	c.UseRequest(func(r *http.Request) {
		order = append(order, "req-2")
		if r.Header.Get("X-Console-Client") != "cli" {
			t.Error("second hook did not see first hook's mutation")
		}
	})
	c.UseResponse(func(r *http.Response) {
		order = append(order, "resp-1")
	})

	if _, err := c.Do(context.Background(), NewDescriptor(http.MethodGet, "/fhir/Patient")); err != nil {
		t.Fatalf("do: %v", err)
	}

	want := []string{"req-1", "req-2", "resp-1"}
	if len(order) != len(want) {
		t.Fatalf("hook order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("hook order = %v, want %v", order, want)
		}
	}
}

func TestNew_RejectsRelativeBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "/not-absolute", Logger: zerolog.Nop()})
	if err == nil {
		t.Error("expected error for relative base URL")
	}
}
