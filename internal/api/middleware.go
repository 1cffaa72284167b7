package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/service"
)

var errBadAuthorizationHeader = errors.New("authorization header must be 'Bearer <token>'")

// BearerAuthMiddleware проверяет access токен из заголовка Authorization.
// Если токен валиден, userID и сам токен сохраняются в контексте Echo.
func BearerAuthMiddleware(tokens *service.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c.Request().Header.Get(models.HeaderAuthorized))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
			}

			userID, err := tokens.ValidateAccessTokenAndGetUserID(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(models.MwUserIDKey, userID)
			c.Set(models.MwTokenKey, token)

			return next(c)
		}
	}
}

// CSRFHeaderMiddleware issues a fresh CSRF value on every response. The
// value is not checked on the way in.
func CSRFHeaderMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(models.HeaderCSRF, uuid.NewString())
			return next(c)
		}
	}
}

func RequestIDConfig() echomiddleware.RequestIDConfig {
	return echomiddleware.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: models.HeaderRequestID,
	}
}

func GetLoggerMiddlewareConfig(a *API) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogError:     true,
		LogRequestID: true,
		LogLatency:   true,

		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", c.Request().Method,
				"uri", v.URI,
				"status", v.Status,
				"requestID", v.RequestID,
				"latency", v.Latency,
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			if v.Status >= http.StatusInternalServerError {
				a.log.Errorw("Request", fields...)
			} else {
				a.log.Infow("Request", fields...)
			}
			return nil
		},
	}
}

func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errBadAuthorizationHeader
	}
	return token, nil
}
