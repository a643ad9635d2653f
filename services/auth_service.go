package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/steamybites/models"
	"github.com/yeremiapane/steamybites/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	DefaultBcryptCost = 12
	minPasswordLength = 6
)

// Session is what a successful login hands back to the client.
type Session struct {
	Token    string `json:"token"`
	UserName string `json:"userName"`
	UserRole string `json:"userRole"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthService handles registration, login and admin seeding.
type AuthService struct {
	db   *gorm.DB
	cost int
}

// NewAuthService creates an AuthService hashing with DefaultBcryptCost.
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db, cost: DefaultBcryptCost}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *AuthService) WithCost(cost int) *AuthService {
	s.cost = cost
	return s
}

// Register creates a user with the given role after validating the input.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, role string) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	if name == "" {
		return nil, invalidf("Name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidf("A valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalidf("Password must be at least %d characters long", minPasswordLength)
	}
	if role != models.RoleCustomer && role != models.RoleAdmin {
		return nil, invalidf("Unknown role %q", role)
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, conflictf("User with this email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Role:     role,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return &user, nil
}

// Login verifies a user of any role and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalidf("Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return s.issue(&user, password)
}

// AdminLogin only considers admin accounts, so customer credentials never pass.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ? AND role = ?", normalizeEmail(email), models.RoleAdmin).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Admin not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return s.issue(&user, password)
}

func (s *AuthService) issue(user *models.User, password string) (*Session, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalidf("Invalid credentials")
	}
	return s.SessionFor(user)
}

// SessionFor signs a token for a user that has already been authenticated.
func (s *AuthService) SessionFor(user *models.User) (*Session, error) {
	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, UserName: user.Name, UserRole: user.Role}, nil
}

// UserByID loads the current state of a user.
func (s *AuthService) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &user, nil
}

// SeedAdmin creates an admin account unless a user with that email already exists.
// It reports whether a new account was created.
func (s *AuthService) SeedAdmin(ctx context.Context, name, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	_, err := s.Register(ctx, RegisterInput{Name: name, Email: email, Password: password}, models.RoleAdmin)
	if errors.Is(err, ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
