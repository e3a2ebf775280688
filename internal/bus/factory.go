package bus

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ysv/peatio-core/internal/common/cnst"
	"github.com/ysv/peatio-core/internal/common/config"
)

// New creates a bus based on configuration
func New(logger *zap.Logger, cfg *config.BusConfig) (Bus, error) {
	logger.Info("Initializing event bus", zap.String("type", cfg.Type))
	switch cfg.Type {
	case cnst.BusTypeMemory:
		return NewMemoryBus(logger), nil
	case cnst.BusTypeRedis:
		return NewRedisBus(logger, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported bus type: %s", cfg.Type)
	}
}
