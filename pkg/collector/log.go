package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/pkg/address"
)

const serviceName = "CollectorService"

// logService wraps Service with logging of every method call
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the collector Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) CollectAddresses(ctx context.Context) (res Result) {
	start := time.Now()
	defer func() {
		ls.logger.Info("CollectAddresses completed",
			zap.String("service", serviceName),
			zap.String("method", "CollectAddresses"),
			zap.Int("total", res.Total),
			zap.Int("new", res.New),
			zap.Duration("duration", time.Since(start)),
		)
	}()
	return ls.svc.CollectAddresses(ctx)
}

func (ls *logService) ListAddresses(ctx context.Context, filter Filter) (addrs []*address.Address, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			ls.logger.Error("ListAddresses failed",
				zap.String("service", serviceName),
				zap.String("method", "ListAddresses"),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		ls.logger.Debug("ListAddresses completed",
			zap.String("service", serviceName),
			zap.String("method", "ListAddresses"),
			zap.Int("count", len(addrs)),
			zap.Duration("duration", time.Since(start)),
		)
	}()
	return ls.svc.ListAddresses(ctx, filter)
}
