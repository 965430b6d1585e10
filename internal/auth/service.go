package auth

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/landlord/internal/database"
	"github.com/dukerupert/landlord/internal/model"
	"github.com/dukerupert/landlord/internal/store"
)

const minPasswordLength = 6

// Verifier turns a bearer credential into the admin it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

type Service struct {
	db     *sql.DB
	admins *store.AdminStore
	tokens *Tokens
	logger *slog.Logger
}

func NewService(db *sql.DB, tokens *Tokens, logger *slog.Logger) *Service {
	return &Service{db: db, admins: store.NewAdminStore(db), tokens: tokens, logger: logger}
}

type RegisterInput struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
}

// Session is what register and login hand back to the client.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	AdminName   string `json:"admin_name"`
}

func authErr(msg string) error {
	return fmt.Errorf("%w: %s", model.ErrAuth, msg)
}

func (s *Service) session(a *model.Admin) (*Session, error) {
	token, err := s.tokens.Issue(a.ID, a.Username)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: token, TokenType: "bearer", AdminName: a.DisplayName()}, nil
}

// Register creates the first and only admin. Once one exists every later
// call is a conflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", model.ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", model.ErrValidation, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var admin *model.Admin
	err = database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		admins := store.NewAdminStore(tx)
		n, err := admins.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: an admin account already exists", model.ErrConflict)
		}
		admin, err = admins.Create(ctx, &model.Admin{
			Username:       username,
			Email:          in.Email,
			FullName:       in.FullName,
			HashedPassword: string(hash),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("admin registered", "admin_id", admin.ID, "username", admin.Username)
	return s.session(admin)
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	admin, err := s.admins.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, authErr("incorrect username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.HashedPassword), []byte(password)); err != nil {
		return nil, authErr("incorrect username or password")
	}
	if !admin.IsActive {
		return nil, authErr("account is disabled")
	}
	return s.session(admin)
}

// Verify implements Verifier. The token must be valid and its admin must
// still exist and be active.
func (s *Service) Verify(ctx context.Context, token string) (Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Principal{}, authErr("could not validate credentials")
	}
	admin, err := s.admins.GetByID(ctx, claims.AdminID)
	if err != nil {
		return Principal{}, err
	}
	if admin == nil || admin.Username != claims.Subject {
		return Principal{}, authErr("could not validate credentials")
	}
	if !admin.IsActive {
		return Principal{}, authErr("account is disabled")
	}
	return Principal{
		AdminID:  admin.ID,
		Username: admin.Username,
		Name:     admin.DisplayName(),
		TokenID:  claims.ID,
	}, nil
}

// Me returns the admin behind p.
func (s *Service) Me(ctx context.Context, p Principal) (*model.Admin, error) {
	admin, err := s.admins.GetByID(ctx, p.AdminID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, authErr("could not validate credentials")
	}
	return admin, nil
}
