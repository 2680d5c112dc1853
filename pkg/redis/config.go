package redis

import "time"

// Mode selects the Redis deployment topology.
type Mode string

const (
	// Standalone connects to a single Redis node.
	Standalone Mode = "standalone"
	// Cluster connects to a Redis cluster.
	Cluster Mode = "cluster"
)

// Config holds the Redis client configuration.
type Config struct {
	Addrs           []string      `env:"ADDRS" envSeparator:"," envDefault:"localhost:6379"`
	Mode            Mode          `env:"MODE" envDefault:"standalone"`
	Password        string        `env:"PASSWORD"`
	DB              int           `env:"DB" envDefault:"0"`
	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
	PoolSize        int           `env:"POOL_SIZE" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"15m"`
	MaxRetries      int           `env:"MAX_RETRIES" envDefault:"3"`
}
