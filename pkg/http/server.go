package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"ScanDesk/pkg/http/middleware"
	applogger "ScanDesk/pkg/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerOption configures Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	host          string
	port          int
	readTimeout   time.Duration
	writeTimeout  time.Duration
	cors          bool
	metricsPath   string
	registerer    prometheus.Registerer
	gatherer      prometheus.Gatherer
	slowThreshold time.Duration
	log           *applogger.Logger
}

// Server serves the dashboard API over Echo.
type Server struct {
	echo *echo.Echo
	opts serverOptions
	log  *applogger.Logger
	addr net.Addr
}

// NewServer builds the Echo instance and mounts handler's routes.
// Port 0 binds an ephemeral port; see Addr.
func NewServer(handler Handler, opts ...ServerOption) *Server {
	o := serverOptions{
		host:          "127.0.0.1",
		port:          8090,
		readTimeout:   10 * time.Second,
		cors:          true,
		slowThreshold: time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = applogger.Nop()
	}

	s := &Server{echo: echo.New(), opts: o, log: o.log.Component("http")}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = o.readTimeout
	s.echo.Server.WriteTimeout = o.writeTimeout

	s.useMiddleware()
	if handler != nil {
		handler.RegisterRoutes(s.echo)
	}
	if o.metricsPath != "" && o.gatherer != nil {
		s.echo.GET(o.metricsPath, echo.WrapHandler(promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

func (s *Server) useMiddleware() {
	s.echo.Use(middleware.Recover(s.log))
	s.echo.Use(middleware.RequestLogging(s.log))
	if s.opts.registerer != nil {
		s.echo.Use(middleware.Metrics(s.opts.registerer, s.log, s.opts.slowThreshold))
	}
	if s.opts.cors {
		s.echo.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

// Start binds the listener synchronously, so a taken port fails here, then
// serves in the background.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.opts.host, strconv.Itoa(s.opts.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.addr = ln.Addr()
	s.echo.Listener = ln

	go func() {
		s.log.Info("listening", applogger.String("addr", s.addr.String()))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("serve failed", applogger.Error(err))
		}
	}()
	return nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.Info("stopped")
	return nil
}

// Addr is the bound address; nil before Start.
func (s *Server) Addr() net.Addr { return s.addr }

// WithAddr sets the listen host and port.
func WithAddr(host string, port int) ServerOption {
	return func(o *serverOptions) {
		o.host = host
		o.port = port
	}
}

// WithTimeouts sets the read and write deadlines. Zero disables a deadline.
func WithTimeouts(read, write time.Duration) ServerOption {
	return func(o *serverOptions) {
		o.readTimeout = read
		o.writeTimeout = write
	}
}

// WithCORS toggles the permissive CORS policy for browser dashboards.
func WithCORS(enabled bool) ServerOption {
	return func(o *serverOptions) { o.cors = enabled }
}

// WithMetrics records request metrics on reg and serves gatherer at path.
// An empty path keeps the request metrics but skips the scrape route.
func WithMetrics(path string, reg prometheus.Registerer, gatherer prometheus.Gatherer) ServerOption {
	return func(o *serverOptions) {
		o.metricsPath = path
		o.registerer = reg
		o.gatherer = gatherer
	}
}

func WithLogger(l *applogger.Logger) ServerOption {
	return func(o *serverOptions) { o.log = l }
}
