package bff

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nephroinnovate/renal-console/internal/platform/gateway"
)

// httpError maps gateway failures onto console responses. An expired
// session becomes a 401 the frontend turns into a login redirect; upstream
// rejections keep their status and extracted message; transport failures
// surface as 502.
func httpError(err error) error {
	if errors.Is(err, gateway.ErrAuthenticationExpired) {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication expired")
	}

	var remote *gateway.RemoteError
	if errors.As(err, &remote) {
		msg := remote.Message
		if msg == "" {
			msg = http.StatusText(remote.Status)
		}
		return echo.NewHTTPError(remote.Status, msg)
	}

	var network *gateway.NetworkError
	if errors.As(err, &network) {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream unreachable")
	}

	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
