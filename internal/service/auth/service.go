// Package auth registers users and logs them in.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/zhouzirui/aria/backend/internal/model/chat"
	pkgauth "github.com/zhouzirui/aria/backend/pkg/auth"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

// Message returns the text shown to the user for a Register or Login error.
func Message(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, ErrUsernameTaken):
		return "Username already exists"
	case errors.Is(err, ErrEmailTaken):
		return "Email already registered"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, ErrUserNotFound):
		return "User not found"
	default:
		return "Registration failed. Please try again."
	}
}

// ValidationError carries a user-facing message and matches ErrInvalidInput.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// Users is the account repository.
type Users interface {
	CreateUser(ctx context.Context, u chat.User) (chat.User, error)
	FindUserByUsername(ctx context.Context, username string) (chat.User, error)
	FindUserByID(ctx context.Context, id string) (chat.User, error)
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,contains=@"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput is the login form.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Result is returned after a successful register or login.
type Result struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type Service struct {
	users    Users
	signer   *pkgauth.Signer
	validate *validator.Validate
}

func NewService(users Users, signer *pkgauth.Signer) *Service {
	return &Service{
		users:    users,
		signer:   signer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register creates the account and signs the user in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Result, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Password = strings.TrimSpace(in.Password)

	if err := s.validate.Struct(in); err != nil {
		return Result{}, registerError(err)
	}

	if _, err := s.users.FindUserByUsername(ctx, in.Username); err == nil {
		return Result{}, ErrUsernameTaken
	} else if !errors.Is(err, chat.ErrUserNotFound) {
		return Result{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := pkgauth.HashPassword(in.Password)
	if err != nil {
		return Result{}, err
	}

	user, err := s.users.CreateUser(ctx, chat.User{Username: in.Username, Email: in.Email, PasswordHash: hash})
	if errors.Is(err, chat.ErrUserExists) {
		return Result{}, ErrEmailTaken
	}
	if err != nil {
		return Result{}, fmt.Errorf("create user: %w", err)
	}

	log.Printf("[auth] registered user=%s id=%s", user.Username, user.ID)
	return s.issue(user)
}

// Login checks credentials. Unknown user and wrong password look the same.
func (s *Service) Login(ctx context.Context, in LoginInput) (Result, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Password = strings.TrimSpace(in.Password)

	if err := s.validate.Struct(in); err != nil {
		return Result{}, &ValidationError{Message: "Username and password are required"}
	}

	user, err := s.users.FindUserByUsername(ctx, in.Username)
	if errors.Is(err, chat.ErrUserNotFound) {
		return Result{}, ErrInvalidCredentials
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup user: %w", err)
	}
	if !pkgauth.VerifyPassword(user.PasswordHash, in.Password) {
		return Result{}, ErrInvalidCredentials
	}
	return s.issue(user)
}

// Profile loads the account behind an authenticated token. A token can
// outlive its user, so a missing row is ErrUserNotFound.
func (s *Service) Profile(ctx context.Context, userID string) (chat.User, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if errors.Is(err, chat.ErrUserNotFound) {
		return chat.User{}, ErrUserNotFound
	}
	if err != nil {
		return chat.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *Service) issue(u chat.User) (Result, error) {
	token, err := s.signer.Issue(u.ID, u.Username)
	if err != nil {
		return Result{}, err
	}
	return Result{Token: token, UserID: u.ID, Username: u.Username}, nil
}

// registerError maps the first failed rule to its message. Any missing
// field wins over the length and format rules.
func registerError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return &ValidationError{Message: "All fields are required"}
		}
	}
	switch fe := fieldErrs[0]; fe.Field() {
	case "Username":
		return &ValidationError{Message: "Username must be at least 3 characters"}
	case "Password":
		return &ValidationError{Message: "Password must be at least 6 characters"}
	case "Email":
		return &ValidationError{Message: "Please enter a valid email"}
	default:
		return &ValidationError{Message: fe.Error()}
	}
}
