// Package bootstrap wires repositories and usecases onto the shared
// infrastructure clients.
package bootstrap

import (
	"github.com/Laincy/reconnected-se/pkg/config"
	"github.com/Laincy/reconnected-se/pkg/logger"
	"github.com/Laincy/reconnected-se/pkg/postgresql"
	"github.com/Laincy/reconnected-se/pkg/redis"
)

// Bootstrap holds every wired component of the exchange process.
type Bootstrap struct {
	Config     *config.Config
	Logger     logger.Interface
	DB         postgresql.PostgreSQLClient
	Cache      redis.Client
	Repository Repository
	Usecase    Usecase
}

// BootstrapConfig carries the infrastructure handles into Init.
type BootstrapConfig struct {
	Config *config.Config
	Logger logger.Interface
	DB     postgresql.PostgreSQLClient
	Cache  redis.Client
}

// Init wires repositories and usecases. Cache may be nil when the
// recent-trades cache is disabled.
func (b *Bootstrap) Init(cfg BootstrapConfig) Bootstrap {
	b.Config = cfg.Config
	b.Logger = cfg.Logger
	b.DB = cfg.DB
	b.Cache = cfg.Cache

	b.registerRepository()
	b.registerUsecase()

	return *b
}
