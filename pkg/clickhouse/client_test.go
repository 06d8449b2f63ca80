package clickhouse

import (
	"context"
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverOptions(t *testing.T) {
	o := defaultOptions()
	for _, opt := range []Option{
		WithAddr("ch.local", 9000),
		WithAuth("default", "p@ss"),
		WithPool(8, 4, time.Minute),
		WithTimeouts(2*time.Second, 20*time.Second),
		WithAsyncInsert(true, true),
		WithMaxExecutionTime(90 * time.Second),
	} {
		opt(o)
	}

	d := o.driverOptions()
	assert.Equal(t, ch.Native, d.Protocol)
	assert.Equal(t, []string{"ch.local:9000"}, d.Addr)
	assert.Equal(t, "p@ss", d.Auth.Password)
	assert.Empty(t, d.Auth.Database)
	assert.Equal(t, 8, d.MaxOpenConns)
	assert.Equal(t, 2*time.Second, d.DialTimeout)
	assert.Equal(t, 1, d.Settings["async_insert"])
	assert.Equal(t, 1, d.Settings["wait_for_async_insert"])
	assert.Equal(t, 90, d.Settings["max_execution_time"])
}

func TestDriverOptions_HTTPWithoutSettings(t *testing.T) {
	o := defaultOptions()
	WithHTTP(true)(o)
	WithAsyncInsert(false, true)(o)
	WithMaxExecutionTime(500 * time.Millisecond)(o)

	d := o.driverOptions()
	assert.Equal(t, ch.HTTP, d.Protocol)
	assert.Empty(t, d.Settings)
}

func TestNewClient_RequiresAddr(t *testing.T) {
	_, err := NewClient(context.Background(), WithAuth("u", "p"))
	require.Error(t, err)
}

func TestEnsureDatabase_RejectsBadName(t *testing.T) {
	c := &Client{}
	assert.Error(t, c.EnsureDatabase(context.Background(), "scan; DROP"))
}
