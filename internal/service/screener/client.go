package screener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ScanDesk/internal/domain/models"
	drepo "ScanDesk/internal/domain/repository"
	xhttp "ScanDesk/pkg/http"
	applogger "ScanDesk/pkg/logger"
)

// Config locates the remote scanner endpoints.
type Config struct {
	BaseURL        string
	ValidatePath   string
	StreamPath     string
	SnapshotPath   string
	RequestTimeout time.Duration
	UserAgent      string
}

// Client talks to the remote scanner: license validation, the scan event
// stream and the snapshot endpoint. It implements drepo.LicenseAuthority,
// drepo.ScanStream and drepo.SnapshotSource.
type Client struct {
	cfg    Config
	api    *xhttp.Client
	stream *xhttp.Client
	log    *applogger.Logger
	now    func() time.Time
}

// New builds a client. Streams use a separate transport client without an
// overall timeout; they are bounded by the caller's context.
func New(cfg Config, l *applogger.Logger) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		api:    xhttp.NewClient(xhttp.WithTimeout(cfg.RequestTimeout), xhttp.WithUserAgent(cfg.UserAgent)),
		stream: xhttp.NewClient(xhttp.WithTimeout(0), xhttp.WithUserAgent(cfg.UserAgent)),
		log:    l.Component("screener"),
		now:    time.Now,
	}
}

type rejection struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Validate performs one round trip to the license authority. Transport
// failures wrap drepo.ErrUnreachable; a 4xx that carries a JSON verdict is
// reported as a rejection.
func (c *Client) Validate(ctx context.Context, key, deviceID string) (models.ValidationResult, error) {
	var res models.ValidationResult
	url := c.cfg.BaseURL + c.cfg.ValidatePath
	err := c.api.PostJSON(ctx, url, models.ValidationRequest{Key: key, DeviceID: deviceID}, &res)
	if err == nil {
		return res, nil
	}

	var se *xhttp.StatusError
	if errors.As(err, &se) && se.ClientError() {
		var rj rejection
		if se.Decode(&rj) == nil && (rj.Message != "" || rj.Error != "") {
			msg := rj.Message
			if msg == "" {
				msg = rj.Error
			}
			return models.ValidationResult{Success: false, Message: msg}, nil
		}
	}

	c.log.Warn("license validation failed", applogger.Error(err))
	return models.ValidationResult{}, fmt.Errorf("%w: validate: %v", drepo.ErrUnreachable, err)
}

// Open starts a scan stream. The cache-busting t parameter is epoch millis.
func (c *Client) Open(ctx context.Context, req models.StreamRequest) (drepo.EventStream, error) {
	q := url.Values{}
	q.Set("timeframe", req.Timeframe)
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))
	q.Set("license_key", req.LicenseKey)
	q.Set("device_id", req.DeviceID)

	body, err := c.stream.Stream(ctx, c.cfg.BaseURL+c.cfg.StreamPath, q, "text/event-stream")
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("open stream: %w", err)
		}
		return nil, fmt.Errorf("%w: open stream: %v", drepo.ErrUnreachable, err)
	}

	c.log.Debug("stream opened", applogger.String("timeframe", req.Timeframe))
	return newEventStream(body), nil
}

// Snapshot fetches the one-shot signal batch.
func (c *Client) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	var snap models.Snapshot
	err := c.api.GetJSON(ctx, c.cfg.BaseURL+c.cfg.SnapshotPath, &snap)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		return nil, fmt.Errorf("%w: snapshot: %v", drepo.ErrUnreachable, err)
	}
	if !snap.Success {
		msg := snap.Error
		if msg == "" {
			msg = "server reported failure"
		}
		return nil, fmt.Errorf("snapshot: %s", msg)
	}
	return &snap, nil
}
