package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sparklab/internal/auth"
	"sparklab/internal/domain"
	"sparklab/internal/logger"
)

// UserService handles registration, sign-in and student listings.
type UserService struct {
	users  UserRepository
	tokens *auth.Tokens
	now    func() time.Time
	log    *logger.Logger
}

func NewUserService(users UserRepository, tokens *auth.Tokens, log *logger.Logger) *UserService {
	if log == nil {
		log = logger.Nop()
	}
	return &UserService{users: users, tokens: tokens, now: time.Now, log: log.With("component", "user_service")}
}

// Registration is the sign-up form.
type Registration struct {
	Email    string
	UserName string
	Password string
	ID       string
	Age      int
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (s *UserService) Register(ctx context.Context, reg Registration) (AuthResult, error) {
	id := strings.TrimSpace(reg.ID)
	role, ok := domain.RoleForID(id)
	if !ok {
		return AuthResult{}, fmt.Errorf("%w: ID must start with 'STUDENT' or 'TEACHER'", domain.ErrInvalidInput)
	}
	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return AuthResult{}, err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		UserID:       id,
		Email:        strings.TrimSpace(reg.Email),
		UserName:     strings.TrimSpace(reg.UserName),
		Role:         role,
		Age:          reg.Age,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return AuthResult{}, err
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.Info("user registered", "userId", user.UserID, "role", user.Role)
	return AuthResult{Token: token, User: user}, nil
}

// Login checks credentials. role, when non-empty, must match the ID prefix.
func (s *UserService) Login(ctx context.Context, id, password string, role domain.Role) (AuthResult, error) {
	id = strings.TrimSpace(id)
	if role != "" && !strings.HasPrefix(id, string(role)) {
		return AuthResult{}, fmt.Errorf("%w: %s ID must start with '%s'", domain.ErrInvalidInput, strings.ToLower(string(role)), role)
	}
	user, err := s.users.UserByUserID(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return AuthResult{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return AuthResult{}, err
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: user}, nil
}

func (s *UserService) Students(ctx context.Context) ([]domain.User, error) {
	return s.users.ListUsersByRole(ctx, domain.RoleStudent)
}

// Authenticate verifies a bearer token.
func (s *UserService) Authenticate(token string) (auth.Claims, error) {
	return s.tokens.Parse(token)
}
