package api

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/controller"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/service"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/util"
)

const (
	shutdownTimeout = 5 * time.Second
	BasePath        = "/api/v1"
)

type API struct {
	server          *echo.Echo
	controller      *controller.Controller
	tokenService    *service.TokenService
	log             *zap.SugaredLogger
	gracefulTimeout time.Duration
	cleanupFuncs    []func()
}

func NewAPI(
	c *controller.Controller,
	tokenService *service.TokenService,
	l *zap.SugaredLogger,
	sc *util.ServerConfig,
	cleanupFuncs ...func(),
) *API {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.Addr = sc.ServerAddr
	e.Server.WriteTimeout = sc.WriteTimeout
	e.Server.ReadTimeout = sc.ReadTimeout
	e.Server.IdleTimeout = sc.IdleTimeout
	e.HTTPErrorHandler = ErrorHandler(l)

	a := &API{
		server:          e,
		controller:      c,
		tokenService:    tokenService,
		log:             l,
		gracefulTimeout: sc.GracefulTimeout,
		cleanupFuncs:    cleanupFuncs,
	}
	a.registerRoutes()

	return a
}

// Handler exposes the router, e.g. for httptest.
func (a *API) Handler() http.Handler {
	return a.server
}

func (a *API) registerRoutes() {
	a.server.Use(echomiddleware.Recover())
	a.server.Use(echomiddleware.RequestIDWithConfig(RequestIDConfig()))
	a.server.Use(echomiddleware.RequestLoggerWithConfig(GetLoggerMiddlewareConfig(a)))
	a.server.Use(CSRFHeaderMiddleware())

	auth := BearerAuthMiddleware(a.tokenService)
	c := a.controller

	g := a.server.Group(BasePath)
	g.POST("/auth/login/", c.Login)
	g.POST("/auth/token/refresh/", c.Refresh)
	g.POST("/auth/logout/", c.Logout, auth)
	g.GET("/auth/me/", c.Me, auth)

	g.GET("/credentials/:marketplace/", c.ListCredentials, auth)
	g.POST("/credentials/:marketplace/", c.CreateCredential, auth)
	g.POST("/credentials/:marketplace/import/", c.ImportCredentials, auth)
	g.GET("/credentials/:marketplace/:id/", c.GetCredential, auth)
	g.PUT("/credentials/:marketplace/:id/", c.ReplaceCredential, auth)
	g.PATCH("/credentials/:marketplace/:id/", c.UpdateCredential, auth)
	g.DELETE("/credentials/:marketplace/:id/", c.DeleteCredential, auth)

	g.GET("/analytics/sales/", c.SalesSummary, auth)
	g.GET("/analytics/sales/export/", c.ExportSales, auth)
}

func (a *API) Run(ctxBackground context.Context) {
	ctx, stop := signal.NotifyContext(ctxBackground, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		for _, cleanup := range a.cleanupFuncs {
			cleanup()
		}
	}()

	a.ListenGracefulShutdown(ctx)
}

func (a *API) ListenGracefulShutdown(ctx context.Context) {
	go func() {
		err := a.server.Start(a.server.Server.Addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()
	a.log.Infof("Listening on: %s%s", a.server.Server.Addr, BasePath)

	<-ctx.Done()
	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- a.server.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Errorf("shutdown: %v", err)
			return
		}
		a.log.Info("server shutdown completed")
	case <-time.After(a.gracefulTimeout):
		a.log.Warnf("server shutdown did not finish within %s", a.gracefulTimeout)
	}
}
