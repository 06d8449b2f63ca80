package kvstore

import "time"

// RedisConfig locates the Redis server. Zero values take the defaults below.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	PoolSize    int
	DialTimeout time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 2
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	return c
}
