package api

import (
	"context"
	"errors"
	"math"
	"net/http"

	models "ScanDesk/internal/domain/models"
	drepo "ScanDesk/internal/domain/repository"
	"ScanDesk/internal/service/ratelimit"
	"ScanDesk/internal/usecase"
	xhttp "ScanDesk/pkg/http"
	xlogger "ScanDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Controller is the slice of the dashboard the HTTP API drives.
type Controller interface {
	Status(ctx context.Context) (models.DashboardStatus, error)
	Cards(tab models.Tab) []models.SignalCard
	Scan(ctx context.Context) (*usecase.ScanHandle, error)
	SetTab(tab models.Tab)
	SetTimeframe(ctx context.Context, tf string) (*usecase.ScanHandle, error)
	SetAutoRefresh(enabled bool)
	Activate(ctx context.Context, key string) (models.AuthDecision, error)
	CheckLicense(ctx context.Context) (models.AuthDecision, error)
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
}

const scanLimitKey = "manual_scan"

// DashboardEchoHandler exposes the local control API.
type DashboardEchoHandler struct {
	logger *xlogger.Logger
	ctrl   Controller
	rl     *ratelimit.Limiter
}

func NewDashboardEchoHandler(logger *xlogger.Logger, ctrl Controller, rl *ratelimit.Limiter) *DashboardEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DashboardEchoHandler{logger: logger.Component("api"), ctrl: ctrl, rl: rl}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/signals", h.Signals)
	g.POST("/scan", h.Scan)
	g.POST("/tab", h.SetTab)
	g.POST("/timeframe", h.SetTimeframe)
	g.POST("/auto-refresh", h.SetAutoRefresh)
	g.POST("/license/activate", h.Activate)
	g.POST("/license/check", h.CheckLicense)
	g.POST("/snapshot", h.Snapshot)
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DashboardEchoHandler) Status(c echo.Context) error {
	st, err := h.ctrl.Status(c.Request().Context())
	if err != nil {
		h.logger.Error("status usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not read status").WithError(err))
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *DashboardEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tab, err := models.ParseTab(req.Tab)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	cards := h.ctrl.Cards(tab)
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, models.SignalsResponse{Tab: tab, Count: len(cards), Cards: cards})
}

func (h *DashboardEchoHandler) Scan(c echo.Context) error {
	if ok, wait := h.rl.Reserve(scanLimitKey); !ok {
		secs := int(math.Ceil(wait.Seconds()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("scan requested too often").WithRetryAfter(secs))
	}
	return h.startScan(c, func(ctx context.Context) (*usecase.ScanHandle, error) {
		return h.ctrl.Scan(ctx)
	})
}

func (h *DashboardEchoHandler) SetTab(c echo.Context) error {
	req := &models.TabRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tab, err := models.ParseTab(req.Tab)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	h.ctrl.SetTab(tab)
	return h.Status(c)
}

func (h *DashboardEchoHandler) SetTimeframe(c echo.Context) error {
	req := &models.TimeframeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.startScan(c, func(ctx context.Context) (*usecase.ScanHandle, error) {
		return h.ctrl.SetTimeframe(ctx, req.Timeframe)
	})
}

func (h *DashboardEchoHandler) SetAutoRefresh(c echo.Context) error {
	req := &models.AutoRefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.ctrl.SetAutoRefresh(*req.Enabled)
	return h.Status(c)
}

func (h *DashboardEchoHandler) Activate(c echo.Context) error {
	req := &models.ActivateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	d, err := h.ctrl.Activate(c.Request().Context(), req.Key)
	return h.authResponse(c, d, err)
}

func (h *DashboardEchoHandler) CheckLicense(c echo.Context) error {
	d, err := h.ctrl.CheckLicense(c.Request().Context())
	return h.authResponse(c, d, err)
}

func (h *DashboardEchoHandler) Snapshot(c echo.Context) error {
	snap, err := h.ctrl.LoadSnapshot(c.Request().Context())
	if err != nil {
		h.logger.Warn("snapshot failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError(err.Error()).WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"signals":       len(snap.Signals),
		"total_stocks":  snap.Total(),
		"signals_found": snap.Found(),
		"timestamp":     snap.Timestamp,
	})
}

func (h *DashboardEchoHandler) startScan(c echo.Context, start func(ctx context.Context) (*usecase.ScanHandle, error)) error {
	handle, err := start(c.Request().Context())
	switch {
	case errors.Is(err, usecase.ErrInvalidTimeframe):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	case errors.Is(err, usecase.ErrNotAuthorized):
		return xhttp.AppErrorResponse(c, xhttp.ForbiddenError(usecase.MsgEnterLicense))
	case err != nil:
		h.logger.Error("scan not started", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("scan not started").WithError(err))
	}

	resp := map[string]string{}
	if handle != nil {
		resp["session_id"] = handle.ID()
	}
	return xhttp.AcceptedResponse(c, resp)
}

func (h *DashboardEchoHandler) authResponse(c echo.Context, d models.AuthDecision, err error) error {
	switch {
	case errors.Is(err, usecase.ErrActivationInFlight):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	case errors.Is(err, drepo.ErrUnreachable):
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError(usecase.MsgServerUnreachable).WithError(err))
	case err != nil:
		h.logger.Error("license usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("license check failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, d)
}
