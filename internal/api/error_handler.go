package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/service"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/util"
)

func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			log.Errorw("unhandled error", "error", err, "uri", c.Request().RequestURI)
		}

		if err := c.JSON(status, body); err != nil {
			log.Errorw("failed to write json response", "error", err)
		}
	}
}

func errorResponse(err error) (int, models.ErrorResponse) {
	var customErr util.MyResponseError
	if errors.As(err, &customErr) {
		if len(customErr.Fields) > 0 {
			return customErr.Status, models.ErrorResponse{Errors: customErr.Fields}
		}
		return customErr.Status, models.ErrorResponse{Detail: customErr.Msg}
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, models.ErrorResponse{Detail: "No active account found with the given credentials"}
	case isUnauthorizedTokenError(err):
		return http.StatusUnauthorized, models.ErrorResponse{Detail: "Token is invalid or expired"}
	case errors.Is(err, storage.ErrCredentialNotFound):
		return http.StatusNotFound, models.ErrorResponse{Detail: "Not found."}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, models.ErrorResponse{Detail: httpErrorMessage(he)}
	}

	return http.StatusInternalServerError, models.ErrorResponse{Detail: "internal server error"}
}

func isUnauthorizedTokenError(err error) bool {
	return errors.Is(err, service.ErrTokenExpired) ||
		errors.Is(err, service.ErrTokenInvalid) ||
		errors.Is(err, service.ErrTokenMalformed) ||
		errors.Is(err, service.ErrTokenRevoked) ||
		errors.Is(err, service.ErrRefreshTokenNotFoundOrUsed)
}

func httpErrorMessage(he *echo.HTTPError) string {
	if msg, ok := he.Message.(string); ok {
		return msg
	}
	return fmt.Sprint(he.Message)
}
