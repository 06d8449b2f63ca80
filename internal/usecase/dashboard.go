package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ScanDesk/internal/domain/models"
	drepo "ScanDesk/internal/domain/repository"
	applogger "ScanDesk/pkg/logger"
)

var (
	ErrInvalidTimeframe = errors.New("unsupported timeframe")
	ErrSnapshotFailed   = errors.New("snapshot request failed")
	ErrNotAuthorized    = errors.New("license not authorized")
)

// Dashboard wires the gate, scanner, store and scheduler into the client
// control flow: an authorized gate starts the first scan and arms the
// scheduler; every tick or manual trigger starts a fresh session.
type Dashboard struct {
	identity  *DeviceIdentity
	gate      *LicenseGate
	scanner   *Scanner
	store     *SignalStore
	refresh   *AutoRefresh
	snapshots drepo.SnapshotSource
	presenter drepo.Presenter
	log       *applogger.Logger
	now       func() time.Time

	mu          sync.Mutex
	ctx         context.Context
	autoRefresh bool
	snapshotAt  time.Time
}

func NewDashboard(
	identity *DeviceIdentity,
	gate *LicenseGate,
	scanner *Scanner,
	store *SignalStore,
	refresh *AutoRefresh,
	snapshots drepo.SnapshotSource,
	presenter drepo.Presenter,
	autoRefresh bool,
	l *applogger.Logger,
) *Dashboard {
	if presenter == nil {
		presenter = drepo.NopPresenter{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Dashboard{
		identity:    identity,
		gate:        gate,
		scanner:     scanner,
		store:       store,
		refresh:     refresh,
		snapshots:   snapshots,
		presenter:   presenter,
		log:         l.Component("dashboard"),
		now:         time.Now,
		ctx:         context.Background(),
		autoRefresh: autoRefresh,
	}
}

// Start binds the dashboard to ctx, makes sure the device id exists and runs
// the stored license check. Sessions started later live until ctx ends or
// Close is called.
func (d *Dashboard) Start(ctx context.Context) (models.AuthDecision, error) {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()

	id, err := d.identity.GetOrCreate(ctx)
	if err != nil {
		return models.AuthDecision{}, err
	}
	d.log.Info("dashboard starting", applogger.String("device_id", id))
	return d.CheckLicense(ctx)
}

// CheckLicense re-validates the stored key. When accepted it scans and arms
// the scheduler; otherwise the schedule and any live session are dropped.
func (d *Dashboard) CheckLicense(ctx context.Context) (models.AuthDecision, error) {
	decision, err := d.gate.CheckStoredLicense(ctx)
	if errors.Is(err, ErrActivationInFlight) {
		return decision, err
	}
	d.presenter.OnAuthStateChanged(decision)
	if decision.Authorized {
		d.onAuthorized(ctx)
	} else {
		d.onRevoked()
	}
	return decision, err
}

// Activate validates a user-entered key. A blank key changes nothing.
func (d *Dashboard) Activate(ctx context.Context, key string) (models.AuthDecision, error) {
	decision, err := d.gate.Activate(ctx, key)
	if errors.Is(err, ErrActivationInFlight) || decision.Skipped {
		return decision, err
	}
	d.presenter.OnAuthStateChanged(decision)
	if decision.Authorized {
		d.onAuthorized(ctx)
	}
	return decision, err
}

func (d *Dashboard) onAuthorized(ctx context.Context) {
	if _, err := d.Scan(ctx); err != nil {
		d.log.Warn("initial scan not started", applogger.Error(err))
	}
	d.mu.Lock()
	enabled := d.autoRefresh
	d.mu.Unlock()
	d.refresh.Arm(enabled, d.tick)
}

func (d *Dashboard) onRevoked() {
	d.refresh.Disarm()
	d.scanner.Stop()
}

// Scan starts a new session for the current view, superseding any live one.
// It fails with ErrNotAuthorized unless the gate is authorized. ctx is only
// used to read credentials; the session itself is bound to the dashboard
// context.
func (d *Dashboard) Scan(ctx context.Context) (*ScanHandle, error) {
	if d.gate.State() != models.GateAuthorized {
		return nil, ErrNotAuthorized
	}
	creds, err := d.gate.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan credentials: %w", err)
	}
	d.mu.Lock()
	base := d.ctx
	d.mu.Unlock()
	return d.scanner.Start(base, d.scanner.View(), creds), nil
}

func (d *Dashboard) tick() {
	d.mu.Lock()
	base := d.ctx
	d.mu.Unlock()
	if base.Err() != nil {
		return
	}
	_, err := d.Scan(base)
	switch {
	case errors.Is(err, ErrNotAuthorized):
		d.log.Debug("scheduled scan skipped: license not authorized")
	case err != nil:
		d.log.Warn("scheduled scan not started", applogger.Error(err))
	}
}

// SetTab switches the visible direction and re-renders from the store.
func (d *Dashboard) SetTab(tab models.Tab) {
	d.scanner.SetTab(tab)
}

// SetTimeframe changes the scan timeframe and starts a scan on it. The new
// timeframe is kept even when the scan is refused for lack of a license.
func (d *Dashboard) SetTimeframe(ctx context.Context, tf string) (*ScanHandle, error) {
	parsed, err := drepo.ParseTimeframe(tf)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeframe, tf)
	}
	d.scanner.SetTimeframe(string(parsed))
	return d.Scan(ctx)
}

// SetAutoRefresh toggles periodic scans. The schedule only runs while the
// gate is authorized.
func (d *Dashboard) SetAutoRefresh(enabled bool) {
	d.mu.Lock()
	d.autoRefresh = enabled
	d.mu.Unlock()

	if enabled && d.gate.State() == models.GateAuthorized {
		d.refresh.Arm(true, d.tick)
		return
	}
	d.refresh.Disarm()
}

// LoadSnapshot pulls the offline batch and feeds it through the store and
// render path.
func (d *Dashboard) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	if d.snapshots == nil {
		return nil, fmt.Errorf("%w: no snapshot source", ErrSnapshotFailed)
	}
	snap, err := d.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotFailed, err)
	}
	if !snap.Success {
		msg := snap.Error
		if msg == "" {
			msg = "server reported failure"
		}
		return snap, fmt.Errorf("%w: %s", ErrSnapshotFailed, msg)
	}

	d.scanner.LoadSignals(snap.Signals)

	d.mu.Lock()
	d.snapshotAt = d.now()
	d.mu.Unlock()

	d.presenter.OnProgress(models.SessionProgress{
		State:        models.SessionClosedOK,
		Scanned:      snap.Total(),
		Total:        snap.Total(),
		SignalsFound: snap.Found(),
	})
	d.log.Info("snapshot loaded",
		applogger.Int("signals", len(snap.Signals)),
		applogger.Int("total", snap.Total()),
	)
	return snap, nil
}

// Signals returns the stored signals visible on tab.
func (d *Dashboard) Signals(tab models.Tab) []models.StockSignal {
	return d.store.FilterByDirection(tab.Direction())
}

// Cards renders the signals visible on tab for the current timeframe.
func (d *Dashboard) Cards(tab models.Tab) []models.SignalCard {
	tf := d.scanner.View().Timeframe
	signals := d.Signals(tab)
	cards := make([]models.SignalCard, 0, len(signals))
	for _, sig := range signals {
		if card, ok := sig.Card(tf, false); ok {
			cards = append(cards, card)
		}
	}
	return cards
}

func (d *Dashboard) View() models.View { return d.scanner.View() }

// LatestScan returns the most recently started session, live or finished.
func (d *Dashboard) LatestScan() (*ScanHandle, bool) { return d.scanner.Latest() }

func (d *Dashboard) Status(ctx context.Context) (models.DashboardStatus, error) {
	id, err := d.identity.GetOrCreate(ctx)
	if err != nil {
		return models.DashboardStatus{}, err
	}

	d.mu.Lock()
	last := d.snapshotAt
	d.mu.Unlock()
	if sum, ok := d.scanner.LastSummary(); ok && sum.CompletedAt.After(last) {
		last = sum.CompletedAt
	}

	st := models.DashboardStatus{
		DeviceID:    id,
		Auth:        d.gate.Decision(),
		View:        d.scanner.View(),
		AutoRefresh: d.refresh.Armed(),
		Session:     d.scanner.Progress(),
		StoreSize:   d.store.Len(),
	}
	if !last.IsZero() {
		st.LastScanAt = &last
	}
	return st, nil
}

// Close cancels the scheduler and abandons any live session.
func (d *Dashboard) Close() {
	d.refresh.Disarm()
	d.scanner.Stop()
	d.log.Info("dashboard stopped")
}
