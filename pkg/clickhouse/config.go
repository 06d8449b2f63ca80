package clickhouse

import (
	"fmt"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// Option configures Client.
type Option func(*options)

type options struct {
	addr        string
	user        string
	password    string
	http        bool
	settings    ch.Settings
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	dialTimeout time.Duration
	readTimeout time.Duration
}

func defaultOptions() *options {
	return &options{
		settings:    ch.Settings{},
		maxOpen:     4,
		maxIdle:     2,
		maxLifetime: 5 * time.Minute,
		dialTimeout: 5 * time.Second,
		readTimeout: 30 * time.Second,
	}
}

// driverOptions translates to clickhouse-go options. The connection is not
// bound to a database; callers qualify table names.
func (o *options) driverOptions() *ch.Options {
	proto := ch.Native
	if o.http {
		proto = ch.HTTP
	}
	return &ch.Options{
		Protocol:        proto,
		Addr:            []string{o.addr},
		Auth:            ch.Auth{Username: o.user, Password: o.password},
		Settings:        o.settings,
		DialTimeout:     o.dialTimeout,
		ReadTimeout:     o.readTimeout,
		MaxOpenConns:    o.maxOpen,
		MaxIdleConns:    o.maxIdle,
		ConnMaxLifetime: o.maxLifetime,
	}
}

func WithAddr(host string, port int) Option {
	return func(o *options) { o.addr = fmt.Sprintf("%s:%d", host, port) }
}

func WithAuth(user, password string) Option {
	return func(o *options) {
		o.user = user
		o.password = password
	}
}

// WithHTTP switches from the native TCP protocol to HTTP.
func WithHTTP(enabled bool) Option {
	return func(o *options) { o.http = enabled }
}

func WithPool(maxOpen, maxIdle int, lifetime time.Duration) Option {
	return func(o *options) {
		o.maxOpen = maxOpen
		o.maxIdle = maxIdle
		o.maxLifetime = lifetime
	}
}

func WithTimeouts(dial, read time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = dial
		o.readTimeout = read
	}
}

// WithAsyncInsert lets the server buffer small inserts. With wait set the
// insert returns only after the buffer is flushed.
func WithAsyncInsert(enabled, wait bool) Option {
	return func(o *options) {
		if !enabled {
			return
		}
		o.settings["async_insert"] = 1
		if wait {
			o.settings["wait_for_async_insert"] = 1
		} else {
			o.settings["wait_for_async_insert"] = 0
		}
	}
}

// WithMaxExecutionTime caps server-side query time, rounded down to seconds.
func WithMaxExecutionTime(d time.Duration) Option {
	return func(o *options) {
		if d >= time.Second {
			o.settings["max_execution_time"] = int(d / time.Second)
		}
	}
}
