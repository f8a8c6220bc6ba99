package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/auth"
	"github.com/artisanmart/storefront/pkg/orm"
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is what a successful login or registration returns.
type Session struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type AuthService struct {
	users *repositories.UserRepository
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{users: repositories.NewUserRepository(db)}
}

// Register creates a customer account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	const op = "auth.register"

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, apperr.Internal(op, err)
	}
	user := models.User{Name: in.Name, Email: in.Email, Password: hash, Role: models.RoleUser}
	if err := s.users.Create(ctx, &user); err != nil {
		if orm.IsDuplicate(err) {
			return Session{}, apperr.Conflict(op, "Email is already registered", ErrEmailTaken)
		}
		return Session{}, apperr.Internal(op, err)
	}
	return s.issue(op, user)
}

// Login checks the credentials. Unknown emails and wrong passwords fail
// the same way.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	const op = "auth.login"

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil && !orm.IsNotFound(err) {
		return Session{}, apperr.Internal(op, err)
	}
	if err != nil || !auth.CheckPassword(user.Password, in.Password) {
		return Session{}, apperr.Unauthorized(op, "Invalid email or password", ErrInvalidCredentials)
	}
	return s.issue(op, user)
}

// Me loads the authenticated user.
func (s *AuthService) Me(ctx context.Context, id uint) (models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if orm.IsNotFound(err) {
		return models.User{}, apperr.NotFound("auth.me", "User not found", ErrUserNotFound)
	}
	if err != nil {
		return models.User{}, apperr.Internal("auth.me", err)
	}
	return user, nil
}

func (s *AuthService) issue(op string, user models.User) (Session, error) {
	token, expires, err := auth.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return Session{}, apperr.Internal(op, err)
	}
	return Session{User: user, Token: token, ExpiresAt: expires}, nil
}
