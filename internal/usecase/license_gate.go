package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ScanDesk/internal/domain/models"
	drepo "ScanDesk/internal/domain/repository"
	applogger "ScanDesk/pkg/logger"
	"ScanDesk/pkg/kvstore"
)

var ErrActivationInFlight = errors.New("license validation already in progress")

const (
	MsgEnterLicense      = "Enter your license key"
	MsgSessionExpired    = "Session expired or invalid key"
	MsgActivationFailed  = "Activation failed"
	MsgServerUnreachable = "Server unreachable. Please try again."
)

// LicenseGate decides whether this device may use the scanner. At most one
// remote validation runs at a time.
type LicenseGate struct {
	authority drepo.LicenseAuthority
	store     kvstore.Store
	device    *DeviceIdentity
	metrics   drepo.Metrics
	log       *applogger.Logger

	mu       sync.Mutex
	state    models.GateState
	token    string
	inFlight bool
}

func NewLicenseGate(
	authority drepo.LicenseAuthority,
	store kvstore.Store,
	device *DeviceIdentity,
	metrics drepo.Metrics,
	l *applogger.Logger,
) *LicenseGate {
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &LicenseGate{
		authority: authority,
		store:     store,
		device:    device,
		metrics:   metrics,
		log:       l.Component("license"),
		state:     models.GateUnauthorized,
	}
}

// State returns the current gate state.
func (g *LicenseGate) State() models.GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Decision describes the current state without contacting the authority.
func (g *LicenseGate) Decision() models.AuthDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return decisionFor(g.state, "")
}

// Credentials returns what the scan stream needs to be admitted. The token is
// empty until a key was stored or activated.
func (g *LicenseGate) Credentials(ctx context.Context) (models.Credentials, error) {
	deviceID, err := g.device.GetOrCreate(ctx)
	if err != nil {
		return models.Credentials{}, err
	}
	g.mu.Lock()
	token := g.token
	g.mu.Unlock()
	if token == "" {
		token, err = g.storedToken(ctx)
		if err != nil {
			return models.Credentials{}, err
		}
	}
	return models.Credentials{LicenseKey: token, DeviceID: deviceID}, nil
}

// CheckStoredLicense validates the persisted key. An explicit rejection
// clears it; a transport failure keeps it for the next attempt.
func (g *LicenseGate) CheckStoredLicense(ctx context.Context) (models.AuthDecision, error) {
	token, err := g.storedToken(ctx)
	if err != nil {
		return g.settle(models.GateUnauthorized, ""), err
	}
	if token == "" {
		g.metrics.RecordLicenseCheck("absent")
		d := g.settle(models.GateUnauthorized, MsgEnterLicense)
		return d, nil
	}

	if err := g.begin(); err != nil {
		return g.Decision(), err
	}

	res, err := g.validateRemote(ctx, token)
	switch {
	case err != nil:
		g.finish(models.GateUnauthorized, "")
		return decisionFor(models.GateUnauthorized, MsgServerUnreachable), err
	case res.Success:
		g.finish(models.GateAuthorized, token)
		g.log.Info("stored license accepted")
		return decisionFor(models.GateAuthorized, ""), nil
	}

	if err := g.store.Delete(ctx, KeyLicenseKey); err != nil {
		g.log.Warn("could not clear rejected license", applogger.Error(err))
	}
	g.finish(models.GateUnauthorized, "")
	msg := res.Message
	if msg == "" {
		msg = MsgSessionExpired
	}
	g.log.Info("stored license rejected", applogger.String("reason", msg))
	return decisionFor(models.GateUnauthorized, msg), nil
}

// Activate validates a candidate key entered by the user. A blank candidate
// is a no-op. On failure the previous gate state and stored key are kept.
func (g *LicenseGate) Activate(ctx context.Context, candidate string) (models.AuthDecision, error) {
	key := strings.TrimSpace(candidate)
	if key == "" {
		d := g.Decision()
		d.Skipped = true
		return d, nil
	}

	g.mu.Lock()
	if g.inFlight {
		g.mu.Unlock()
		return models.AuthDecision{}, ErrActivationInFlight
	}
	prevState, prevToken := g.state, g.token
	g.inFlight = true
	g.state = models.GateValidating
	g.mu.Unlock()

	res, err := g.validateRemote(ctx, key)
	if err != nil {
		g.finish(prevState, prevToken)
		return decisionFor(prevState, MsgServerUnreachable), err
	}
	if !res.Success {
		g.finish(prevState, prevToken)
		msg := res.Message
		if msg == "" {
			msg = MsgActivationFailed
		}
		g.log.Info("activation rejected", applogger.String("reason", msg))
		return decisionFor(prevState, msg), nil
	}

	if err := g.store.Set(ctx, KeyLicenseKey, key); err != nil {
		g.log.Warn("license accepted but not persisted", applogger.Error(err))
		g.metrics.RecordError("license_persist")
	}
	g.finish(models.GateAuthorized, key)
	g.log.Info("license activated")
	return decisionFor(models.GateAuthorized, ""), nil
}

// validateRemote performs the single round trip to the authority.
func (g *LicenseGate) validateRemote(ctx context.Context, key string) (models.ValidationResult, error) {
	deviceID, err := g.device.GetOrCreate(ctx)
	if err != nil {
		return models.ValidationResult{}, err
	}

	start := time.Now()
	res, err := g.authority.Validate(ctx, key, deviceID)
	g.metrics.RecordLatency("license_validate", time.Since(start).Seconds())
	switch {
	case err != nil:
		g.metrics.RecordLicenseCheck("unreachable")
		g.log.Warn("license authority unreachable", applogger.Error(err))
		if !errors.Is(err, drepo.ErrUnreachable) {
			err = fmt.Errorf("%w: %v", drepo.ErrUnreachable, err)
		}
		return models.ValidationResult{}, err
	case res.Success:
		g.metrics.RecordLicenseCheck("authorized")
	default:
		g.metrics.RecordLicenseCheck("rejected")
	}
	return res, nil
}

func (g *LicenseGate) storedToken(ctx context.Context) (string, error) {
	token, err := g.store.Get(ctx, KeyLicenseKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read license key: %w", err)
	}
	return token, nil
}

func (g *LicenseGate) begin() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight {
		return ErrActivationInFlight
	}
	g.inFlight = true
	g.state = models.GateValidating
	return nil
}

func (g *LicenseGate) finish(state models.GateState, token string) {
	g.mu.Lock()
	g.inFlight = false
	g.state = state
	g.token = token
	g.mu.Unlock()
}

func (g *LicenseGate) settle(state models.GateState, msg string) models.AuthDecision {
	g.mu.Lock()
	if !g.inFlight {
		g.state = state
		if state != models.GateAuthorized {
			g.token = ""
		}
	}
	g.mu.Unlock()
	return decisionFor(state, msg)
}

func decisionFor(state models.GateState, msg string) models.AuthDecision {
	return models.AuthDecision{
		State:       state,
		Authorized:  state == models.GateAuthorized,
		PromptEntry: state == models.GateUnauthorized,
		Message:     msg,
	}
}
