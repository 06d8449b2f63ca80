package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	models "ScanDesk/internal/domain/models"
	drepo "ScanDesk/internal/domain/repository"
	"ScanDesk/internal/service/ratelimit"
	"ScanDesk/internal/usecase"
	xhttp "ScanDesk/pkg/http"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	tab         models.Tab
	timeframe   string
	autoRefresh *bool
	scans       int
	scanErr     error
	activateKey string
	activateErr error
	decision    models.AuthDecision
	snapErr     error
	cards       []models.SignalCard
}

func (f *fakeController) Status(context.Context) (models.DashboardStatus, error) {
	st := models.DashboardStatus{DeviceID: "DEV-TEST", View: models.View{Tab: f.tab, Timeframe: f.timeframe}}
	if f.autoRefresh != nil {
		st.AutoRefresh = *f.autoRefresh
	}
	return st, nil
}

func (f *fakeController) Cards(tab models.Tab) []models.SignalCard {
	f.tab = tab
	return f.cards
}

func (f *fakeController) Scan(context.Context) (*usecase.ScanHandle, error) {
	f.scans++
	return nil, f.scanErr
}

func (f *fakeController) SetTab(tab models.Tab) { f.tab = tab }

func (f *fakeController) SetTimeframe(_ context.Context, tf string) (*usecase.ScanHandle, error) {
	f.timeframe = tf
	f.scans++
	return nil, f.scanErr
}

func (f *fakeController) SetAutoRefresh(enabled bool) { f.autoRefresh = &enabled }

func (f *fakeController) Activate(_ context.Context, key string) (models.AuthDecision, error) {
	f.activateKey = key
	return f.decision, f.activateErr
}

func (f *fakeController) CheckLicense(context.Context) (models.AuthDecision, error) {
	return f.decision, nil
}

func (f *fakeController) LoadSnapshot(context.Context) (*models.Snapshot, error) {
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	total := 10
	return &models.Snapshot{Success: true, TotalStocks: &total}, nil
}

func newTestServer(ctrl Controller, rl *ratelimit.Limiter) *echo.Echo {
	e := echo.New()
	NewDashboardEchoHandler(nil, ctrl, rl).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) xhttp.APIResponse {
	t.Helper()
	var resp xhttp.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSignals_DefaultsToCallAndAcceptsAliases(t *testing.T) {
	ctrl := &fakeController{cards: []models.SignalCard{{Name: "INFY", Label: "CE"}}}
	e := newTestServer(ctrl, nil)

	rec := do(e, http.MethodGet, "/api/signals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TabCall, ctrl.tab)
	data := decode(t, rec).Data.(map[string]interface{})
	assert.EqualValues(t, 1, data["count"])

	rec = do(e, http.MethodGet, "/api/signals?tab=pe", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TabPut, ctrl.tab)

	rec = do(e, http.MethodGet, "/api/signals?tab=sideways", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScan_RateLimited(t *testing.T) {
	ctrl := &fakeController{}
	e := newTestServer(ctrl, ratelimit.New(1, time.Minute))

	rec := do(e, http.MethodPost, "/api/scan", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(e, http.MethodPost, "/api/scan", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, ctrl.scans)
}

func TestScan_UnauthorizedIsForbidden(t *testing.T) {
	ctrl := &fakeController{scanErr: usecase.ErrNotAuthorized}
	e := newTestServer(ctrl, ratelimit.New(5, time.Minute))

	rec := do(e, http.MethodPost, "/api/scan", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), usecase.MsgEnterLicense)

	rec = do(e, http.MethodPost, "/api/timeframe", `{"timeframe":"5m"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "5m", ctrl.timeframe)
}

func TestSetTimeframe_ValidatesAndScans(t *testing.T) {
	ctrl := &fakeController{}
	e := newTestServer(ctrl, nil)

	rec := do(e, http.MethodPost, "/api/timeframe", `{"timeframe":"4h"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, ctrl.scans)

	rec = do(e, http.MethodPost, "/api/timeframe", `{"timeframe":"5m"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "5m", ctrl.timeframe)
	assert.Equal(t, 1, ctrl.scans)
}

func TestSetTabAndAutoRefresh(t *testing.T) {
	ctrl := &fakeController{}
	e := newTestServer(ctrl, nil)

	rec := do(e, http.MethodPost, "/api/tab", `{"tab":"PUT"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TabPut, ctrl.tab)

	rec = do(e, http.MethodPost, "/api/auto-refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/auto-refresh", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ctrl.autoRefresh)
	assert.False(t, *ctrl.autoRefresh)
}

func TestActivate_MapsErrors(t *testing.T) {
	ctrl := &fakeController{decision: models.AuthDecision{State: models.GateAuthorized, Authorized: true}}
	e := newTestServer(ctrl, nil)

	rec := do(e, http.MethodPost, "/api/license/activate", `{"key":"ABC-123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ABC-123", ctrl.activateKey)

	ctrl.activateErr = usecase.ErrActivationInFlight
	rec = do(e, http.MethodPost, "/api/license/activate", `{"key":"ABC-123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	ctrl.activateErr = fmt.Errorf("%w: dial tcp", drepo.ErrUnreachable)
	rec = do(e, http.MethodPost, "/api/license/activate", `{"key":"ABC-123"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), usecase.MsgServerUnreachable)
}

func TestSnapshot(t *testing.T) {
	ctrl := &fakeController{}
	e := newTestServer(ctrl, nil)

	rec := do(e, http.MethodPost, "/api/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec).Data.(map[string]interface{})
	assert.EqualValues(t, 10, data["total_stocks"])

	ctrl.snapErr = usecase.ErrSnapshotFailed
	rec = do(e, http.MethodPost, "/api/snapshot", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newTestServer(&fakeController{}, nil)
	rec := do(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
