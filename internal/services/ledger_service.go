package services

import (
	"bytes"
	"context"
	"errors"
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

// CacheInvalidator drops cached read models after a balance-affecting write.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID uuid.UUID)
}

// LedgerService applies and reverses balance-affecting transactions. Each
// operation is one atomic unit of work: the balance mutations and the ledger
// row commit together or not at all.
type LedgerService interface {
	CreateTransaction(ctx context.Context, traceID string, userID uuid.UUID, req views.CreateTransactionRequest) (uuid.UUID, error)
	DeleteTransaction(ctx context.Context, traceID string, userID, txnID uuid.UUID) error
}

type LedgerServiceImpl struct {
	logger      *zap.Logger
	db          database.Conn
	accountRepo repositories.AccountRepository
	txnRepo     repositories.TransactionRepository
	cache       CacheInvalidator
}

func NewLedgerService(logger *zap.Logger, db database.Conn, accountRepo repositories.AccountRepository, txnRepo repositories.TransactionRepository, cache CacheInvalidator) LedgerService {
	return &LedgerServiceImpl{
		logger:      logger,
		db:          db,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		cache:       cache,
	}
}

func (s *LedgerServiceImpl) CreateTransaction(ctx context.Context, traceID string, userID uuid.UUID, req views.CreateTransactionRequest) (uuid.UUID, error) {
	kind, amount, destID, err := validateCreate(req)
	if err != nil {
		return uuid.Nil, err
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return uuid.Nil, pkg.NewAppError(pkg.ErrRecordNotFoundCode, "account not found or not authorized", err)
	}
	if destID != nil && *destID == accountID {
		return uuid.Nil, pkg.NewAppError(pkg.ErrInvalidInputCode, "transfer destination must differ from source account", nil)
	}

	txnID := uuid.New()
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		switch kind {
		case pkg.TxKindIncome:
			source, err := s.lockAccount(ctx, traceID, tx, accountID, userID, "account")
			if err != nil {
				return err
			}
			if _, err = s.applyDelta(ctx, traceID, tx, source, amount); err != nil {
				return err
			}
		case pkg.TxKindExpense:
			source, err := s.lockAccount(ctx, traceID, tx, accountID, userID, "account")
			if err != nil {
				return err
			}
			if _, err = s.applyDelta(ctx, traceID, tx, source, amount.Neg()); err != nil {
				return floorAs(err, pkg.ErrInsufficientFundsCode, "insufficient funds")
			}
		case pkg.TxKindTransfer:
			source, dest, err := s.lockPair(ctx, traceID, tx, accountID, *destID, userID)
			if err != nil {
				return err
			}
			if _, err = s.applyDelta(ctx, traceID, tx, source, amount.Neg()); err != nil {
				return floorAs(err, pkg.ErrInsufficientFundsCode, "insufficient funds for transfer")
			}
			if _, err = s.applyDelta(ctx, traceID, tx, dest, amount); err != nil {
				return err
			}
		}

		// The ledger row goes in last, once the balances it describes are consistent.
		txn := models.Transaction{
			ID:                  txnID,
			UserID:              userID,
			AccountID:           accountID,
			Kind:                kind,
			Amount:              amount,
			Description:         req.Description,
			TransferToAccountID: destID,
			CreatedAt:           time.Now(),
		}
		if _, err := s.txnRepo.Create(ctx, tx, txn); err != nil {
			return pkg.HandleSQLError(traceID, s.logger, err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.invalidate(ctx, userID)
	s.logger.Info("transaction created",
		zap.String(pkg.TraceId, traceID),
		zap.String("transaction_id", txnID.String()),
		zap.String("type", string(kind)),
	)
	return txnID, nil
}

func (s *LedgerServiceImpl) DeleteTransaction(ctx context.Context, traceID string, userID, txnID uuid.UUID) error {
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		txn, err := s.txnRepo.FindByIdForUser(ctx, tx, txnID, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return pkg.NewAppError(pkg.ErrRecordNotFoundCode, "transaction not found or not authorized", err)
			}
			return pkg.HandleSQLError(traceID, s.logger, err)
		}

		// Reversal is the exact algebraic inverse of creation. Balances are
		// read under the same locks used for the reversal writes, so the floor
		// checks see a consistent snapshot.
		switch txn.Kind {
		case pkg.TxKindIncome:
			source, err := s.lockAccount(ctx, traceID, tx, txn.AccountID, userID, "account")
			if err != nil {
				return err
			}
			if _, err = s.applyDelta(ctx, traceID, tx, source, txn.Amount.Neg()); err != nil {
				return floorAs(err, pkg.ErrWouldGoNegativeCode, "cannot delete transaction: would result in negative balance")
			}
		case pkg.TxKindExpense:
			source, err := s.lockAccount(ctx, traceID, tx, txn.AccountID, userID, "account")
			if err != nil {
				return err
			}
			if _, err = s.applyDelta(ctx, traceID, tx, source, txn.Amount); err != nil {
				return err
			}
		case pkg.TxKindTransfer:
			if txn.TransferToAccountID == nil {
				// The destination account was deleted, which nulled this
				// reference; only the source leg remains to reverse.
				source, err := s.lockAccount(ctx, traceID, tx, txn.AccountID, userID, "account")
				if err != nil {
					return err
				}
				if _, err = s.applyDelta(ctx, traceID, tx, source, txn.Amount); err != nil {
					return err
				}
				break
			}
			source, dest, err := s.lockPair(ctx, traceID, tx, txn.AccountID, *txn.TransferToAccountID, userID)
			if err != nil {
				return err
			}
			if _, err = s.applyDelta(ctx, traceID, tx, source, txn.Amount); err != nil {
				return err
			}
			if _, err = s.applyDelta(ctx, traceID, tx, dest, txn.Amount.Neg()); err != nil {
				return floorAs(err, pkg.ErrWouldGoNegativeCode, "cannot delete transaction: would result in negative balance in destination account")
			}
		}

		if err := s.txnRepo.Delete(ctx, tx, txnID); err != nil {
			return pkg.HandleSQLError(traceID, s.logger, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, userID)
	s.logger.Info("transaction deleted",
		zap.String(pkg.TraceId, traceID),
		zap.String("transaction_id", txnID.String()),
	)
	return nil
}

// validateCreate checks the request in a fixed order, each step a distinct
// failure, before any store access.
func validateCreate(req views.CreateTransactionRequest) (pkg.TxKind, decimal.Decimal, *uuid.UUID, error) {
	if utils.IsEmpty(req.AccountID) || utils.IsEmpty(req.Type) || !req.Amount.IsSet() {
		return "", decimal.Decimal{}, nil, pkg.NewAppError(pkg.ErrMissingFieldCode, "account_id, type, and amount are required", nil)
	}
	kind := pkg.TxKind(req.Type)
	if !kind.Valid() {
		return "", decimal.Decimal{}, nil, pkg.NewAppError(pkg.ErrInvalidKindCode, "invalid transaction type", nil)
	}
	if kind == pkg.TxKindTransfer && utils.IsEmpty(req.TransferToAccountID) {
		return "", decimal.Decimal{}, nil, pkg.NewAppError(pkg.ErrMissingDestinationCode, "transfer destination account is required", nil)
	}
	amount, err := req.Amount.Decimal()
	if err != nil || amount.Sign() <= 0 {
		return "", decimal.Decimal{}, nil, pkg.NewAppError(pkg.ErrInvalidAmountCode, "amount must be a positive decimal", err)
	}
	var destID *uuid.UUID
	if kind == pkg.TxKindTransfer {
		id, err := uuid.Parse(req.TransferToAccountID)
		if err != nil {
			return "", decimal.Decimal{}, nil, pkg.NewAppError(pkg.ErrRecordNotFoundCode, "destination account not found or not authorized", err)
		}
		destID = &id
	}
	return kind, amount, destID, nil
}

// applyDelta is the balance mutator: it applies a signed delta to a locked
// account and persists the result within the caller's unit of work. A debit
// that would take the balance below zero fails with ErrBalanceFloor and
// writes nothing.
func (s *LedgerServiceImpl) applyDelta(ctx context.Context, traceID string, tx pgx.Tx, account models.Account, delta decimal.Decimal) (decimal.Decimal, error) {
	newBalance := account.Balance.Add(delta)
	if delta.Sign() < 0 && newBalance.Sign() < 0 {
		return decimal.Decimal{}, pkg.ErrBalanceFloor
	}
	if err := s.accountRepo.UpdateBalance(ctx, tx, account.ID, newBalance); err != nil {
		return decimal.Decimal{}, pkg.HandleSQLError(traceID, s.logger, err)
	}
	return newBalance, nil
}

// lockAccount reads an account with a row lock, scoped by owner. A missing
// row and a row owned by someone else are indistinguishable to the caller.
func (s *LedgerServiceImpl) lockAccount(ctx context.Context, traceID string, tx pgx.Tx, accountID, userID uuid.UUID, what string) (models.Account, error) {
	account, err := s.accountRepo.FindByIdForUpdate(ctx, tx, accountID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, pkg.NewAppError(pkg.ErrRecordNotFoundCode, what+" not found or not authorized", err)
		}
		return models.Account{}, pkg.HandleSQLError(traceID, s.logger, err)
	}
	return account, nil
}

// lockPair locks two accounts in a stable order so that two transfers running
// in opposite directions cannot deadlock.
func (s *LedgerServiceImpl) lockPair(ctx context.Context, traceID string, tx pgx.Tx, sourceID, destID, userID uuid.UUID) (source, dest models.Account, err error) {
	if bytes.Compare(sourceID[:], destID[:]) < 0 {
		if source, err = s.lockAccount(ctx, traceID, tx, sourceID, userID, "account"); err != nil {
			return
		}
		dest, err = s.lockAccount(ctx, traceID, tx, destID, userID, "destination account")
		return
	}
	if dest, err = s.lockAccount(ctx, traceID, tx, destID, userID, "destination account"); err != nil {
		return
	}
	source, err = s.lockAccount(ctx, traceID, tx, sourceID, userID, "account")
	return
}

func (s *LedgerServiceImpl) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache != nil {
		s.cache.InvalidateUser(ctx, userID)
	}
}

// floorAs maps the mutator's floor sentinel to the failure kind the operation
// defines; other errors pass through untouched.
func floorAs(err error, code pkg.ErrorCode, msg string) error {
	if errors.Is(err, pkg.ErrBalanceFloor) {
		return pkg.NewAppError(code, msg, err)
	}
	return err
}
