package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"atlas/internal/auth"
	"atlas/internal/core"
)

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUserByID(ctx context.Context, id int64) (core.User, error)
	GetUserByPhone(ctx context.Context, phone string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	Stats(ctx context.Context) (core.AdminStats, error)
}

type RegisterInput struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginInput identifies the user by phone or by email.
type LoginInput struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is what a successful register or login hands back.
type Session struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}

var errInvalidCredentials = fmt.Errorf("invalid credentials: %w", core.ErrUnauthorized)

type AuthService struct {
	users  UserStore
	tokens *auth.TokenManager
}

func NewAuthService(users UserStore, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates the user together with default settings and categories.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)

	if in.Phone == "" || in.Email == "" || in.Name == "" || in.Password == "" {
		return Session{}, core.Invalid("body", "phone, email, name and password are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || !strings.Contains(in.Email, "@") {
		return Session{}, core.Invalid("email", "email is not valid")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return Session{}, core.Invalid("password", fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, core.User{
		Phone:        in.Phone,
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
	})
	if err != nil {
		return Session{}, fmt.Errorf("register user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", user.ID)
	return s.session(user)
}

// Login checks the password of the user named by phone, or by email when no
// phone is given. Unknown users and wrong passwords look the same.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	phone := strings.TrimSpace(in.Phone)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if (phone == "" && email == "") || in.Password == "" {
		return Session{}, core.Invalid("body", "phone or email and password are required")
	}

	var (
		user core.User
		err  error
	)
	if phone != "" {
		user, err = s.users.GetUserByPhone(ctx, phone)
	} else {
		user, err = s.users.GetUserByEmail(ctx, email)
	}
	if errors.Is(err, core.ErrNotFound) {
		return Session{}, errInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, in.Password); err != nil {
		return Session{}, errInvalidCredentials
	}
	return s.session(user)
}

// Verify resolves a bearer token to its principal.
func (s *AuthService) Verify(token string) (auth.Principal, error) {
	return s.tokens.Verify(token)
}

// EnsureAdmin creates the bootstrap administrator unless a user with that
// phone already exists. It reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, phone, email, password string) (bool, error) {
	existing, err := s.users.GetUserByPhone(ctx, phone)
	if err == nil {
		if !existing.IsAdmin {
			slog.WarnContext(ctx, "Bootstrap admin phone belongs to a regular user", "user_id", existing.ID)
		}
		return false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return false, fmt.Errorf("look up admin: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	admin, err := s.users.CreateUser(ctx, core.User{
		Phone:        phone,
		Email:        strings.ToLower(email),
		Name:         "Administrator",
		PasswordHash: hash,
		IsAdmin:      true,
	})
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	slog.InfoContext(ctx, "Bootstrap admin created", "user_id", admin.ID)
	return true, nil
}

func (s *AuthService) Stats(ctx context.Context) (core.AdminStats, error) {
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return core.AdminStats{}, fmt.Errorf("load stats: %w", err)
	}
	return stats, nil
}

func (s *AuthService) session(u core.User) (Session, error) {
	token, err := s.tokens.Issue(auth.PrincipalOf(u))
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, User: u}, nil
}
