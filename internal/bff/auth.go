package bff

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated   bool   `json:"authenticated"`
	Role            string `json:"role,omitempty"`
	UserID          string `json:"userId,omitempty"`
	RelatedEntityID string `json:"relatedEntityId,omitempty"`
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	ctx := c.Request().Context()
	sess, err := s.reg.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}

	id := s.scopeID(c)
	sc, err := s.reg.get(id)
	if err != nil {
		return httpError(err)
	}
	if err := sc.mgr.Set(ctx, sess); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "persist session")
	}

	s.log.Info().Str("role", sess.Role).Msg("console login")
	return c.JSON(http.StatusOK, sessionResponse{
		Authenticated:   true,
		Role:            sess.Role,
		UserID:          sess.UserID,
		RelatedEntityID: sess.RelatedEntityID,
	})
}

func (s *Server) logout(c echo.Context) error {
	cookie, err := c.Cookie(scopeCookie)
	if err == nil && cookie.Value != "" {
		if sc, err := s.reg.get(cookie.Value); err == nil {
			_ = sc.mgr.Clear(c.Request().Context())
		}
		s.reg.drop(cookie.Value)
	}
	c.SetCookie(&http.Cookie{
		Name:     scopeCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) currentSession(c echo.Context) error {
	cookie, err := c.Cookie(scopeCookie)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusOK, sessionResponse{})
	}
	sc, err := s.reg.get(cookie.Value)
	if err != nil {
		return httpError(err)
	}

	ctx := c.Request().Context()
	if !sc.mgr.IsAuthenticated(ctx) {
		return c.JSON(http.StatusOK, sessionResponse{})
	}
	cur := sc.mgr.Current(ctx)
	return c.JSON(http.StatusOK, sessionResponse{
		Authenticated:   true,
		Role:            cur.Role,
		UserID:          cur.UserID,
		RelatedEntityID: cur.RelatedEntityID,
	})
}
