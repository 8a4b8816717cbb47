package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sahanr/finance-tracker/internal/views"
	"github.com/sahanr/finance-tracker/pkg"
	"github.com/sahanr/finance-tracker/pkg/database"
	"github.com/sahanr/finance-tracker/pkg/repositories"
	"go.uber.org/zap"
)

const (
	dashboardCachePrefix = "dashboard:"
	recentTransactions   = 5
)

// DashboardService is the read-only query layer: transaction listings and the
// per-user dashboard aggregate, cached in Redis between writes.
type DashboardService interface {
	CacheInvalidator
	ListTransactions(ctx context.Context, traceID string, userID uuid.UUID, accountID *uuid.UUID) ([]views.TransactionView, error)
	Dashboard(ctx context.Context, traceID string, userID uuid.UUID) (views.DashboardResponse, error)
}

type DashboardServiceImpl struct {
	logger      *zap.Logger
	db          database.Conn
	accountRepo repositories.AccountRepository
	txnRepo     repositories.TransactionRepository
	redisClient *redis.Client // nil disables caching
	cacheTTL    time.Duration
}

func NewDashboardService(logger *zap.Logger, db database.Conn, accountRepo repositories.AccountRepository, txnRepo repositories.TransactionRepository, redisClient *redis.Client, cacheTTL time.Duration) DashboardService {
	return &DashboardServiceImpl{
		logger:      logger,
		db:          db,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

func (s *DashboardServiceImpl) ListTransactions(ctx context.Context, traceID string, userID uuid.UUID, accountID *uuid.UUID) ([]views.TransactionView, error) {
	records, err := s.txnRepo.ListByUser(ctx, s.db, userID, accountID, 0)
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.logger, err)
	}
	return views.NewTransactionViews(records), nil
}

func (s *DashboardServiceImpl) Dashboard(ctx context.Context, traceID string, userID uuid.UUID) (views.DashboardResponse, error) {
	key := dashboardCachePrefix + userID.String()
	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, key).Bytes()
		if err == nil {
			var resp views.DashboardResponse
			if err = json.Unmarshal(cached, &resp); err == nil {
				return resp, nil
			}
			s.logger.Warn("discarding unreadable dashboard cache entry", zap.String(pkg.TraceId, traceID), zap.Error(err))
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("dashboard cache read failed", zap.String(pkg.TraceId, traceID), zap.Error(err))
		}
	}

	resp, err := s.buildDashboard(ctx, traceID, userID)
	if err != nil {
		return views.DashboardResponse{}, err
	}

	if s.redisClient != nil {
		if payload, err := json.Marshal(resp); err == nil {
			if err = s.redisClient.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("dashboard cache write failed", zap.String(pkg.TraceId, traceID), zap.Error(err))
			}
		}
	}
	return resp, nil
}

func (s *DashboardServiceImpl) buildDashboard(ctx context.Context, traceID string, userID uuid.UUID) (views.DashboardResponse, error) {
	accounts, err := s.accountRepo.ListByUser(ctx, s.db, userID)
	if err != nil {
		return views.DashboardResponse{}, pkg.HandleSQLError(traceID, s.logger, err)
	}
	total, err := s.accountRepo.SumBalances(ctx, s.db, userID)
	if err != nil {
		return views.DashboardResponse{}, pkg.HandleSQLError(traceID, s.logger, err)
	}
	recent, err := s.txnRepo.ListByUser(ctx, s.db, userID, nil, recentTransactions)
	if err != nil {
		return views.DashboardResponse{}, pkg.HandleSQLError(traceID, s.logger, err)
	}
	monthly, err := s.txnRepo.MonthlyTotals(ctx, s.db, userID)
	if err != nil {
		return views.DashboardResponse{}, pkg.HandleSQLError(traceID, s.logger, err)
	}

	return views.DashboardResponse{
		Accounts:           views.NewAccountViews(accounts),
		TotalBalance:       total.StringFixed(2),
		RecentTransactions: views.NewTransactionViews(recent),
		MonthlySummary:     views.NewMonthlySummaryViews(monthly),
	}, nil
}

// InvalidateUser drops the cached dashboard after a balance-affecting write.
func (s *DashboardServiceImpl) InvalidateUser(ctx context.Context, userID uuid.UUID) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, dashboardCachePrefix+userID.String()).Err(); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}
