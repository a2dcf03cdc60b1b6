package bff

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nephroinnovate/renal-console/internal/domain/hdsessions"
	"github.com/nephroinnovate/renal-console/internal/domain/institutions"
	"github.com/nephroinnovate/renal-console/internal/domain/labs"
	"github.com/nephroinnovate/renal-console/internal/domain/patients"
	"github.com/nephroinnovate/renal-console/internal/domain/users"
	"github.com/nephroinnovate/renal-console/internal/platform/gateway"
	"github.com/nephroinnovate/renal-console/internal/platform/session"
)

// StoreFactory builds the session store backing one browser scope. The
// Postgres-backed deployment keys stores by scope id; the in-memory
// fallback ignores it.
type StoreFactory func(scopeID string) session.Store

// scope bundles the per-browser-session state: its own session manager and
// the typed clients built over one gateway. Scopes never share tokens.
type scope struct {
	mgr          *session.Manager
	gw           *gateway.Client
	patients     *patients.Client
	institutions *institutions.Client
	hdsessions   *hdsessions.Client
	labs         *labs.Client
	users        *users.Client
}

type scopeRegistry struct {
	mu     sync.Mutex
	scopes map[string]*scope

	baseURL    string
	httpClient *http.Client
	newStore   StoreFactory
	auth       *users.AuthClient
	log        zerolog.Logger
}

func newScopeRegistry(baseURL string, hc *http.Client, factory StoreFactory, auth *users.AuthClient, log zerolog.Logger) *scopeRegistry {
	return &scopeRegistry{
		scopes:     make(map[string]*scope),
		baseURL:    baseURL,
		httpClient: hc,
		newStore:   factory,
		auth:       auth,
		log:        log,
	}
}

// get returns the scope for id, building it on first use.
func (r *scopeRegistry) get(id string) (*scope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.scopes[id]; ok {
		return s, nil
	}

	mgr := session.NewManager(r.newStore(id), r.auth.RefreshFunc())
	gw, err := gateway.New(gateway.Config{
		BaseURL:    r.baseURL,
		Session:    mgr,
		HTTPClient: r.httpClient,
		Logger:     r.log.With().Str("scope", id).Logger(),
	})
	if err != nil {
		return nil, err
	}

	s := &scope{
		mgr:          mgr,
		gw:           gw,
		patients:     patients.NewClient(gw),
		institutions: institutions.NewClient(gw),
		hdsessions:   hdsessions.NewClient(gw),
		labs:         labs.NewClient(gw),
		users:        users.NewClient(gw),
	}
	r.scopes[id] = s
	return s, nil
}

// drop forgets a scope after logout. The underlying store has already been
// cleared by the session manager.
func (r *scopeRegistry) drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scopes, id)
}
