package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sahanr/finance-tracker/internal/views"
	"github.com/sahanr/finance-tracker/pkg"
	"github.com/sahanr/finance-tracker/pkg/database"
	"github.com/sahanr/finance-tracker/pkg/models"
	"github.com/sahanr/finance-tracker/pkg/repositories"
	"github.com/sahanr/finance-tracker/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const initialBalanceDescription = "Initial balance"

type AccountService interface {
	CreateAccount(ctx context.Context, traceID string, userID uuid.UUID, req views.CreateAccountRequest) (uuid.UUID, error)
	RenameAccount(ctx context.Context, traceID string, userID, accountID uuid.UUID, req views.RenameAccountRequest) error
	DeleteAccount(ctx context.Context, traceID string, userID, accountID uuid.UUID) error
	ListAccounts(ctx context.Context, traceID string, userID uuid.UUID) ([]views.AccountView, error)
}

type AccountServiceImpl struct {
	logger      *zap.Logger
	db          database.Conn
	accountRepo repositories.AccountRepository
	txnRepo     repositories.TransactionRepository
	cache       CacheInvalidator
}

func NewAccountService(logger *zap.Logger, db database.Conn, accountRepo repositories.AccountRepository, txnRepo repositories.TransactionRepository, cache CacheInvalidator) AccountService {
	return &AccountServiceImpl{
		logger:      logger,
		db:          db,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		cache:       cache,
	}
}

// CreateAccount creates an account with an optional non-negative initial
// balance. A positive initial balance is recorded as a synthetic income
// transaction in the same unit of work, keeping the ledger identity intact.
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, traceID string, userID uuid.UUID, req views.CreateAccountRequest) (uuid.UUID, error) {
	if utils.IsEmpty(req.Name) {
		return uuid.Nil, pkg.NewAppError(pkg.ErrMissingFieldCode, "account name is required", nil)
	}
	balance := decimal.Zero
	if req.Balance.IsSet() {
		var err error
		balance, err = req.Balance.Decimal()
		if err != nil || balance.Sign() < 0 {
			return uuid.Nil, pkg.NewAppError(pkg.ErrInvalidAmountCode, "invalid balance value", err)
		}
	}

	accountID := uuid.New()
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		account := models.Account{
			ID:        accountID,
			UserID:    userID,
			Name:      req.Name,
			Balance:   balance,
			CreatedAt: time.Now(),
		}
		if _, err := s.accountRepo.Create(ctx, tx, account); err != nil {
			return pkg.HandleSQLError(traceID, s.logger, err)
		}
		if balance.Sign() > 0 {
			txn := models.Transaction{
				ID:          uuid.New(),
				UserID:      userID,
				AccountID:   accountID,
				Kind:        pkg.TxKindIncome,
				Amount:      balance,
				Description: initialBalanceDescription,
				CreatedAt:   time.Now(),
			}
			if _, err := s.txnRepo.Create(ctx, tx, txn); err != nil {
				return pkg.HandleSQLError(traceID, s.logger, err)
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.invalidate(ctx, userID)
	s.logger.Info("account created",
		zap.String(pkg.TraceId, traceID),
		zap.String("account_id", accountID.String()),
	)
	return accountID, nil
}

func (s *AccountServiceImpl) RenameAccount(ctx context.Context, traceID string, userID, accountID uuid.UUID, req views.RenameAccountRequest) error {
	if utils.IsEmpty(req.Name) {
		return pkg.NewAppError(pkg.ErrMissingFieldCode, "account name is required", nil)
	}
	rows, err := s.accountRepo.Rename(ctx, s.db, accountID, userID, req.Name)
	if err != nil {
		return pkg.HandleSQLError(traceID, s.logger, err)
	}
	if rows == 0 {
		return pkg.NewAppError(pkg.ErrRecordNotFoundCode, "account not found or not authorized", nil)
	}
	return nil
}

// DeleteAccount removes the account. The store cascades the deletion to the
// account's transactions and nulls transfer references pointing at it.
func (s *AccountServiceImpl) DeleteAccount(ctx context.Context, traceID string, userID, accountID uuid.UUID) error {
	rows, err := s.accountRepo.Delete(ctx, s.db, accountID, userID)
	if err != nil {
		return pkg.HandleSQLError(traceID, s.logger, err)
	}
	if rows == 0 {
		return pkg.NewAppError(pkg.ErrRecordNotFoundCode, "account not found or not authorized", nil)
	}
	s.invalidate(ctx, userID)
	s.logger.Info("account deleted",
		zap.String(pkg.TraceId, traceID),
		zap.String("account_id", accountID.String()),
	)
	return nil
}

func (s *AccountServiceImpl) ListAccounts(ctx context.Context, traceID string, userID uuid.UUID) ([]views.AccountView, error) {
	accounts, err := s.accountRepo.ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.logger, err)
	}
	return views.NewAccountViews(accounts), nil
}

func (s *AccountServiceImpl) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache != nil {
		s.cache.InvalidateUser(ctx, userID)
	}
}
