package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nephroinnovate/renal-console/internal/platform/gateway"
	"github.com/nephroinnovate/renal-console/internal/platform/session"
)

// AuthClient talks to the platform's auth endpoints. It deliberately sits
// on a plain HTTP client rather than the gateway: a wrong password comes
// back as 401 and must surface as a credentials error, not trigger the
// gateway's refresh-and-replay handling.
type AuthClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewAuthClient(baseURL string, hc *http.Client, log zerolog.Logger) *AuthClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &AuthClient{baseURL: strings.TrimSuffix(baseURL, "/"), http: hc, log: log}
}

// flexID accepts both the string and numeric id spellings the platform
// has shipped.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// loginResponse tolerates both token field spellings the platform has
// shipped: access_token on newer deployments, token on older ones.
type loginResponse struct {
	AccessToken     string `json:"access_token"`
	Token           string `json:"token"`
	RefreshToken    string `json:"refresh_token"`
	Role            string `json:"role"`
	ID              flexID `json:"id"`
	RelatedEntityID flexID `json:"relatedEntityId"`
}

// Login exchanges credentials for a session. The caller is responsible for
// persisting it via the session manager.
func (c *AuthClient) Login(ctx context.Context, email, password string) (session.Session, error) {
	body, err := c.post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return session.Session{}, err
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return session.Session{}, fmt.Errorf("decode login response: %w", err)
	}

	token := lr.AccessToken
	if token == "" {
		token = lr.Token
	}
	if token == "" {
		return session.Session{}, fmt.Errorf("login response carried no token")
	}

	c.log.Info().Str("role", lr.Role).Msg("login succeeded")
	return session.Session{
		AccessToken:     token,
		RefreshToken:    lr.RefreshToken,
		Role:            lr.Role,
		UserID:          string(lr.ID),
		RelatedEntityID: string(lr.RelatedEntityID),
	}, nil
}

// RefreshFunc adapts the POST /auth/refresh endpoint to the session
// manager's refresh hook.
func (c *AuthClient) RefreshFunc() session.RefreshFunc {
	return func(ctx context.Context, refreshToken string) (string, error) {
		body, err := c.post(ctx, "/auth/refresh", map[string]string{
			"refresh": refreshToken,
		})
		if err != nil {
			return "", err
		}
		var rr struct {
			Access string `json:"access"`
		}
		if err := json.Unmarshal(body, &rr); err != nil {
			return "", fmt.Errorf("decode refresh response: %w", err)
		}
		if rr.Access == "" {
			return "", fmt.Errorf("refresh response carried no token")
		}
		return rr.Access, nil
	}
}

// Registration is the self-service signup payload.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

func (c *AuthClient) Register(ctx context.Context, reg Registration) error {
	_, err := c.post(ctx, "/auth/register", reg)
	return err
}

func (c *AuthClient) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &gateway.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &gateway.RemoteError{
			Status:  resp.StatusCode,
			Body:    body,
			Message: gateway.ExtractMessage(body),
		}
	}
	return body, nil
}
