package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sahanr/finance-tracker/internal/views"
	"github.com/sahanr/finance-tracker/pkg"
	"github.com/sahanr/finance-tracker/pkg/auth"
	"github.com/sahanr/finance-tracker/pkg/database"
	"github.com/sahanr/finance-tracker/pkg/models"
	"github.com/sahanr/finance-tracker/pkg/repositories"
	"github.com/sahanr/finance-tracker/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultAccountName = "Main Account"

type AuthService interface {
	Register(ctx context.Context, traceID string, req views.RegisterRequest) (views.AuthResponse, error)
	Login(ctx context.Context, traceID string, req views.LoginRequest) (views.AuthResponse, error)
}

type AuthServiceImpl struct {
	logger      *zap.Logger
	db          database.Conn
	tokens      *auth.Manager
	userRepo    repositories.UserRepository
	accountRepo repositories.AccountRepository
}

func NewAuthService(logger *zap.Logger, db database.Conn, tokens *auth.Manager, userRepo repositories.UserRepository, accountRepo repositories.AccountRepository) AuthService {
	return &AuthServiceImpl{
		logger:      logger,
		db:          db,
		tokens:      tokens,
		userRepo:    userRepo,
		accountRepo: accountRepo,
	}
}

// Register creates the user and their default account in one unit of work.
func (s *AuthServiceImpl) Register(ctx context.Context, traceID string, req views.RegisterRequest) (views.AuthResponse, error) {
	if utils.IsEmpty(req.Username) || utils.IsEmpty(req.Email) || utils.IsEmpty(req.Password) {
		return views.AuthResponse{}, pkg.NewAppError(pkg.ErrMissingFieldCode, "all fields are required", nil)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return views.AuthResponse{}, pkg.NewAppError(pkg.ErrServerCode, "failed to hash password", err)
	}

	userID := uuid.New()
	accountID := uuid.New()
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		user := models.User{
			ID:           userID,
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			CreatedAt:    time.Now(),
		}
		if _, err := s.userRepo.Create(ctx, tx, user); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return pkg.NewAppError(pkg.ErrDuplicateIdentityCode, "username or email already exists", err)
			}
			return pkg.HandleSQLError(traceID, s.logger, err)
		}
		account := models.Account{
			ID:        accountID,
			UserID:    userID,
			Name:      defaultAccountName,
			Balance:   decimal.Zero,
			CreatedAt: time.Now(),
		}
		if _, err := s.accountRepo.Create(ctx, tx, account); err != nil {
			return pkg.HandleSQLError(traceID, s.logger, err)
		}
		return nil
	})
	if err != nil {
		return views.AuthResponse{}, err
	}

	access, refresh, err := s.tokens.IssuePair(userID)
	if err != nil {
		return views.AuthResponse{}, pkg.NewAppError(pkg.ErrServerCode, "failed to issue tokens", err)
	}

	s.logger.Info("user registered",
		zap.String(pkg.TraceId, traceID),
		zap.String("user_id", userID.String()),
	)
	accountIDStr := accountID.String()
	return views.AuthResponse{
		Message: "User registered successfully",
		Tokens: views.TokenDetails{
			Access:    access,
			Refresh:   refresh,
			Username:  req.Username,
			Email:     req.Email,
			UserID:    userID.String(),
			Balance:   decimal.Zero.StringFixed(2),
			AccountID: &accountIDStr,
		},
	}, nil
}

// Login authenticates by username or email. Failures are reported as a single
// generic credential error so the response does not reveal which part was wrong.
func (s *AuthServiceImpl) Login(ctx context.Context, traceID string, req views.LoginRequest) (views.AuthResponse, error) {
	if utils.IsEmpty(req.Username) || utils.IsEmpty(req.Password) {
		return views.AuthResponse{}, pkg.NewAppError(pkg.ErrMissingFieldCode, "all fields are required", nil)
	}

	user, err := s.userRepo.FindByIdentity(ctx, s.db, req.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return views.AuthResponse{}, pkg.NewAppError(pkg.ErrUnauthorizedCode, "invalid credentials", err)
		}
		return views.AuthResponse{}, pkg.HandleSQLError(traceID, s.logger, err)
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return views.AuthResponse{}, pkg.NewAppError(pkg.ErrUnauthorizedCode, "invalid credentials", nil)
	}

	access, refresh, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return views.AuthResponse{}, pkg.NewAppError(pkg.ErrServerCode, "failed to issue tokens", err)
	}

	tokens := views.TokenDetails{
		Access:   access,
		Refresh:  refresh,
		Username: user.Username,
		Email:    user.Email,
		UserID:   user.ID.String(),
		Balance:  decimal.Zero.StringFixed(2),
	}
	// The registration default account's summary rides along for the client.
	account, err := s.accountRepo.FirstByUser(ctx, s.db, user.ID)
	if err == nil {
		id := account.ID.String()
		tokens.AccountID = &id
		tokens.Balance = account.Balance.StringFixed(2)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return views.AuthResponse{}, pkg.HandleSQLError(traceID, s.logger, err)
	}

	s.logger.Info("user logged in",
		zap.String(pkg.TraceId, traceID),
		zap.String("user_id", user.ID.String()),
	)
	return views.AuthResponse{
		Message: "Login successful",
		Tokens:  tokens,
	}, nil
}
