package bff

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/nephroinnovate/renal-console/internal/config"
	"github.com/nephroinnovate/renal-console/internal/domain/users"
	"github.com/nephroinnovate/renal-console/internal/platform/middleware"
	"github.com/nephroinnovate/renal-console/internal/platform/session"
)

// scopeCookie carries the browser's scope id. The cookie is opaque; all
// tokens stay server-side in the scope's session store.
const scopeCookie = "rc_scope"

// Server is the console's backend-for-frontend. It terminates browser
// sessions, keeps upstream tokens out of the client, and proxies the admin
// API surface through per-scope gateways.
type Server struct {
	e   *echo.Echo
	cfg *config.Config
	log zerolog.Logger
	reg *scopeRegistry
}

func NewServer(cfg *config.Config, factory StoreFactory, log zerolog.Logger) *Server {
	hc := &http.Client{Timeout: cfg.RequestTimeout()}
	auth := users.NewAuthClient(cfg.APIBaseURL, hc, log)

	s := &Server{
		e:   echo.New(),
		cfg: cfg,
		log: log,
		reg: newScopeRegistry(cfg.APIBaseURL, hc, factory, auth, log),
	}
	s.e.HideBanner = true
	s.e.HidePort = true

	s.e.Use(middleware.Recovery(log))
	s.e.Use(middleware.RequestID())
	s.e.Use(middleware.Logger(log))
	s.e.Use(middleware.SecurityHeaders())
	s.e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.e.GET("/healthz", s.health)

	auth := s.e.Group("/auth")
	auth.POST("/login", s.login)
	auth.POST("/logout", s.logout)
	auth.GET("/session", s.currentSession)

	api := s.e.Group("/api", s.requireScope)
	api.GET("/patients", s.listPatients)
	api.GET("/patients/:id", s.getPatient)
	api.POST("/patients", s.createPatient)
	api.PUT("/patients/:id", s.updatePatient)
	api.DELETE("/patients/:id", s.deletePatient)

	api.GET("/institutions", s.listInstitutions)
	api.GET("/institutions/:id", s.getInstitution)
	api.POST("/institutions", s.createInstitution)
	api.PUT("/institutions/:id", s.updateInstitution)
	api.DELETE("/institutions/:id", s.deleteInstitution)

	api.GET("/hd-sessions", s.listHDSessions)
	api.GET("/hd-sessions/:id", s.getHDSession)
	api.POST("/hd-sessions", s.createHDSession)
	api.PUT("/hd-sessions/:id", s.updateHDSession)
	api.DELETE("/hd-sessions/:id", s.deleteHDSession)

	api.GET("/labs", s.listLabs)
	api.GET("/labs/:id", s.getLab)
	api.POST("/labs", s.createLab)
	api.DELETE("/labs/:id", s.deleteLab)

	api.GET("/users", s.listUsers)
	api.GET("/users/:id", s.getUser)
	api.PUT("/users/:id", s.updateUser)
	api.DELETE("/users/:id", s.deactivateUser)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// scopeID returns the browser's scope id, minting one when absent.
func (s *Server) scopeID(c echo.Context) string {
	if cookie, err := c.Cookie(scopeCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     scopeCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !s.cfg.IsDev(),
	})
	return id
}

// requireScope resolves the caller's scope and rejects anonymous callers
// before any proxy handler runs.
func (s *Server) requireScope(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(scopeCookie)
		if err != nil || cookie.Value == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
		}
		sc, err := s.reg.get(cookie.Value)
		if err != nil {
			return httpError(err)
		}
		if !sc.mgr.IsAuthenticated(c.Request().Context()) {
			return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
		}
		c.Set("scope", sc)
		c.Set("scope_id", cookie.Value)
		return next(c)
	}
}

func currentScope(c echo.Context) *scope {
	sc, _ := c.Get("scope").(*scope)
	return sc
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.e.Start(":" + s.cfg.Port)
	}()
	s.log.Info().Str("port", s.cfg.Port).Msg("console listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.e.Shutdown(shutdownCtx)
	}
}

// Handler exposes the echo engine for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

// MemStoreFactory backs every scope with its own in-memory store.
func MemStoreFactory() StoreFactory {
	return func(string) session.Store {
		return session.NewMemStore()
	}
}
