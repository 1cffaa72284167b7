package controller

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/service"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/util"
)

const importFormField = "file"

type Controller struct {
	zapLogger   *zap.SugaredLogger
	authService *service.AuthService
	credentials *service.CredentialService
	analytics   *service.AnalyticsService
}

func NewController(
	logger *zap.SugaredLogger,
	authService *service.AuthService,
	credentials *service.CredentialService,
	analytics *service.AnalyticsService,
) *Controller {
	return &Controller{
		zapLogger:   logger,
		authService: authService,
		credentials: credentials,
		analytics:   analytics,
	}
}

// (POST /auth/login/).
func (c *Controller) Login(ctx echo.Context) error {
	var req models.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "Malformed request body")
	}

	session, err := c.authService.Login(ctx.Request().Context(), req.Username, req.Password, clientMeta(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, session)
}

// (POST /auth/token/refresh/).
func (c *Controller) Refresh(ctx echo.Context) error {
	var req models.TokenRefreshRequest
	if err := ctx.Bind(&req); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "Malformed request body")
	}
	if req.Refresh == "" {
		return util.NewValidationError(http.StatusBadRequest, map[string][]string{
			"refresh": {"This field is required."},
		})
	}

	pair, err := c.authService.Refresh(ctx.Request().Context(), req.Refresh, clientMeta(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pair)
}

// (POST /auth/logout/).
func (c *Controller) Logout(ctx echo.Context) error {
	var req models.TokenRefreshRequest
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&req); err != nil {
			return util.NewResponseError(http.StatusBadRequest, "Malformed request body")
		}
	}

	token, _ := ctx.Get(models.MwTokenKey).(string)
	if err := c.authService.Logout(ctx.Request().Context(), token, req.Refresh); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// (GET /auth/me/).
func (c *Controller) Me(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.authService.User())
}

// (GET /credentials/:marketplace/).
func (c *Controller) ListCredentials(ctx echo.Context) error {
	m, err := marketplaceParam(ctx)
	if err != nil {
		return err
	}
	list, err := c.credentials.List(ctx.Request().Context(), m)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, list)
}

// (POST /credentials/:marketplace/).
func (c *Controller) CreateCredential(ctx echo.Context) error {
	m, err := marketplaceParam(ctx)
	if err != nil {
		return err
	}
	var in models.CredentialInput
	if err := ctx.Bind(&in); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "Malformed request body")
	}
	cred, err := c.credentials.Create(ctx.Request().Context(), m, in)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cred)
}

// (GET /credentials/:marketplace/:id/).
func (c *Controller) GetCredential(ctx echo.Context) error {
	m, err := marketplaceParam(ctx)
	if err != nil {
		return err
	}
	cred, err := c.credentials.Get(ctx.Request().Context(), m, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cred)
}

// (PUT /credentials/:marketplace/:id/).
func (c *Controller) ReplaceCredential(ctx echo.Context) error {
	return c.writeCredential(ctx, c.credentials.Replace)
}

// (PATCH /credentials/:marketplace/:id/).
func (c *Controller) UpdateCredential(ctx echo.Context) error {
	return c.writeCredential(ctx, c.credentials.Update)
}

// (DELETE /credentials/:marketplace/:id/).
func (c *Controller) DeleteCredential(ctx echo.Context) error {
	m, err := marketplaceParam(ctx)
	if err != nil {
		return err
	}
	if err := c.credentials.Delete(ctx.Request().Context(), m, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// (POST /credentials/:marketplace/import/).
func (c *Controller) ImportCredentials(ctx echo.Context) error {
	m, err := marketplaceParam(ctx)
	if err != nil {
		return err
	}

	fh, err := ctx.FormFile(importFormField)
	if err != nil {
		return util.NewValidationError(http.StatusBadRequest, map[string][]string{
			importFormField: {"No file was submitted."},
		})
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open uploaded file: %w", err)
	}
	defer f.Close()

	result, err := c.credentials.Import(ctx.Request().Context(), m, f)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, result)
}

// (GET /analytics/sales/).
func (c *Controller) SalesSummary(ctx echo.Context) error {
	summary, err := c.analytics.Sales(ctx.QueryParam("marketplace"), ctx.QueryParam("from"), ctx.QueryParam("to"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, summary)
}

// (GET /analytics/sales/export/).
func (c *Controller) ExportSales(ctx echo.Context) error {
	summary, err := c.analytics.Sales(ctx.QueryParam("marketplace"), ctx.QueryParam("from"), ctx.QueryParam("to"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := c.analytics.WriteCSV(&buf, summary); err != nil {
		return err
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", service.ExportFilename(summary)))
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

type credentialWriter func(ctx context.Context, m models.Marketplace, id string, in models.CredentialInput) (*models.Credential, error)

func (c *Controller) writeCredential(ctx echo.Context, write credentialWriter) error {
	m, err := marketplaceParam(ctx)
	if err != nil {
		return err
	}
	var in models.CredentialInput
	if err := ctx.Bind(&in); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "Malformed request body")
	}
	cred, err := write(ctx.Request().Context(), m, ctx.Param("id"), in)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cred)
}

func marketplaceParam(ctx echo.Context) (models.Marketplace, error) {
	m, err := models.ParseMarketplace(ctx.Param("marketplace"))
	if err != nil {
		return "", util.NewResponseError(http.StatusNotFound, "Unknown marketplace %q", ctx.Param("marketplace"))
	}
	return m, nil
}

func clientMeta(ctx echo.Context) service.ClientMeta {
	return service.ClientMeta{
		UserAgent: ctx.Request().UserAgent(),
		IPAddress: ctx.RealIP(),
	}
}
