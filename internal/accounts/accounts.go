// Package accounts registers users and checks their credentials.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/storefront-golang/internal/apperr"
	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/01moynul/storefront-golang/internal/models"
	"go.uber.org/zap"
)

// ErrInvalidCredentials is returned for an unknown login or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Registration is the JSON body for POST /register.
type Registration struct {
	Username string `json:"username" binding:"required,max=150"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Credentials is the JSON body for POST /login.
type Credentials struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewService(db *sql.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// CreateAccount inserts the user and its profile in one transaction.
func (s *Service) CreateAccount(ctx context.Context, reg Registration) (*models.User, error) {
	user := &models.User{
		Username:  strings.TrimSpace(reg.Username),
		Email:     strings.ToLower(strings.TrimSpace(reg.Email)),
		CreatedAt: time.Now(),
	}
	if user.Username == "" {
		return nil, apperr.InvalidField("username", "This field is required.")
	}

	// 1. --- Hash the Password ---
	var password models.Password
	if err := password.Set(reg.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = password.Hash

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// 2. --- Uniqueness ---
		fields := map[string]string{}
		var taken bool
		if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)", user.Username).Scan(&taken); err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if taken {
			fields["username"] = "A user with that username already exists."
		}
		if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)", user.Email).Scan(&taken); err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			fields["email"] = "Email already exists."
		}
		if len(fields) > 0 {
			return &apperr.ValidationError{Message: "Registration failed", Fields: fields}
		}

		// 3. --- User & Profile ---
		res, err := tx.ExecContext(ctx,
			"INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
			user.Username, user.Email, user.PasswordHash, user.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		if user.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("user id: %w", err)
		}

		profile := &models.UserProfile{UserID: user.ID, ProfilePicture: models.DefaultProfilePicture}
		res, err = tx.ExecContext(ctx,
			"INSERT INTO user_profiles (user_id, profile_picture) VALUES (?, ?)",
			profile.UserID, profile.ProfilePicture)
		if err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		profile.ID, _ = res.LastInsertId()
		user.Profile = profile
		return nil
	})
	if err != nil {
		// A concurrent registration can pass the pre-check.
		if database.IsDuplicateKey(err) {
			return nil, apperr.Invalid("Username or email already exists")
		}
		return nil, err
	}

	s.logger.Info("account_created", zap.Int64("user_id", user.ID))
	return user, nil
}

// Authenticate accepts an email address or a username as login.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	column := "username"
	if strings.Contains(login, "@") {
		column = "email"
		login = strings.ToLower(login)
	}

	var user models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE "+column+" = ?", login).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	pw := models.Password{Hash: user.PasswordHash}
	ok, err := pw.Matches(password)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?", userID).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
