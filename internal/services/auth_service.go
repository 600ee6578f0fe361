package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"maintenance-app/internal/models"
	"maintenance-app/internal/repository"
	"maintenance-app/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type RegisterInput struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
	FullName string      `json:"full_name" validate:"required"`
	Role     models.Role `json:"role,omitempty"`
}

// AuthResult is a fresh session with its signed token and the profile it
// belongs to.
type AuthResult struct {
	Token   string          `json:"token"`
	Session models.Session  `json:"session"`
	Profile *models.Profile `json:"profile,omitempty"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	SwitchRole(ctx context.Context, sess models.Session, role models.Role) (*AuthResult, error)
	Profile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateFullName(ctx context.Context, sess models.Session, fullName string) (*models.Profile, error)
}

type authService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	jwtUtil  *utils.JWTUtil
}

func NewAuthService(users repository.UserRepository, profiles repository.ProfileRepository, jwtUtil *utils.JWTUtil) AuthService {
	return &authService{users: users, profiles: profiles, jwtUtil: jwtUtil}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if err := utils.GetValidator().Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(utils.ParseErrors(err), "; "))
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrValidation, input.Role)
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", models.ErrValidation)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	user := &models.User{Email: input.Email, Password: input.Password, Role: role}
	if err := user.HashPassword(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	profile := &models.Profile{
		UserID:   user.ID.Hex(),
		FullName: input.FullName,
		Email:    input.Email,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}

	return s.issue(models.Session{
		UserID:   user.ID.Hex(),
		Email:    user.Email,
		FullName: profile.FullName,
		Role:     user.Role,
	}, profile)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := user.ComparePassword(password); err != nil {
		return nil, ErrInvalidCredentials
	}

	profile, err := s.profiles.GetByUserID(ctx, user.ID.Hex())
	if err != nil {
		return nil, err
	}

	return s.issue(models.Session{
		UserID:   user.ID.Hex(),
		Email:    user.Email,
		FullName: profile.FullName,
		Role:     user.Role,
	}, profile)
}

// SwitchRole persists the new active role and returns a fresh session. The
// switch is self-service; the role model here is deliberately lenient.
func (s *authService) SwitchRole(ctx context.Context, sess models.Session, role models.Role) (*AuthResult, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrValidation, role)
	}

	userID, err := primitive.ObjectIDFromHex(sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidID, sess.UserID)
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}

	next := sess
	next.Role = role
	return s.issue(next, nil)
}

func (s *authService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.profiles.GetByUserID(ctx, userID)
}

func (s *authService) UpdateFullName(ctx context.Context, sess models.Session, fullName string) (*models.Profile, error) {
	if strings.TrimSpace(fullName) == "" {
		return nil, fmt.Errorf("%w: full name is required", models.ErrValidation)
	}
	return s.profiles.UpdateFullName(ctx, sess.UserID, fullName)
}

func (s *authService) issue(sess models.Session, profile *models.Profile) (*AuthResult, error) {
	token, err := s.jwtUtil.GenerateToken(sess)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Session: sess, Profile: profile}, nil
}
