package indexer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/transaction"
)

const serviceName = "IndexerService"

// logService wraps Service with logging of every method call
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the indexer Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) IndexAddress(ctx context.Context, addr *address.Address) (n int, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			ls.logger.Error("IndexAddress failed",
				zap.String("service", serviceName),
				zap.String("method", "IndexAddress"),
				zap.String("address", addr.Address),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		ls.logger.Info("IndexAddress completed",
			zap.String("service", serviceName),
			zap.String("method", "IndexAddress"),
			zap.String("address", addr.Address),
			zap.Int("transactions", n),
			zap.Duration("duration", time.Since(start)),
		)
	}()
	return ls.svc.IndexAddress(ctx, addr)
}

func (ls *logService) IndexStoredAddress(ctx context.Context, addr string) (n int, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			ls.logger.Error("IndexStoredAddress failed",
				zap.String("service", serviceName),
				zap.String("method", "IndexStoredAddress"),
				zap.String("address", addr),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		}
	}()
	return ls.svc.IndexStoredAddress(ctx, addr)
}

func (ls *logService) IndexAll(ctx context.Context) (sum Summary) {
	start := time.Now()
	defer func() {
		ls.logger.Info("IndexAll completed",
			zap.String("service", serviceName),
			zap.String("method", "IndexAll"),
			zap.Int("addresses", sum.Addresses),
			zap.Int("transactions", sum.Transactions),
			zap.Duration("duration", time.Since(start)),
		)
	}()
	return ls.svc.IndexAll(ctx)
}

func (ls *logService) GetTransaction(ctx context.Context, id string) (tx *transaction.Transaction, err error) {
	defer func() {
		if err != nil {
			ls.logger.Debug("GetTransaction failed",
				zap.String("service", serviceName),
				zap.String("method", "GetTransaction"),
				zap.String("id", id),
				zap.Error(err),
			)
		}
	}()
	return ls.svc.GetTransaction(ctx, id)
}

func (ls *logService) ListTransactions(
	ctx context.Context,
	limit int,
	cursor string,
	filter Filter,
) (page *transaction.Page, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			ls.logger.Error("ListTransactions failed",
				zap.String("service", serviceName),
				zap.String("method", "ListTransactions"),
				zap.Int("limit", limit),
				zap.String("cursor", cursor),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		}
	}()
	return ls.svc.ListTransactions(ctx, limit, cursor, filter)
}

func (ls *logService) TransactionsByAddress(
	ctx context.Context,
	addr string,
	filter Filter,
) (txs []*transaction.Transaction, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			ls.logger.Error("TransactionsByAddress failed",
				zap.String("service", serviceName),
				zap.String("method", "TransactionsByAddress"),
				zap.String("address", addr),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		}
	}()
	return ls.svc.TransactionsByAddress(ctx, addr, filter)
}
