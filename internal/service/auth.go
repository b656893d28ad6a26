package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/adpanel/adpanel/internal/apperr"
	"github.com/adpanel/adpanel/internal/model"
	"github.com/adpanel/adpanel/internal/repository"
	"github.com/adpanel/adpanel/internal/validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = apperr.Unauthorized("invalid email or password")

// dummyHash is compared against when the email is unknown, so both login
// failures cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
})

// Claims is the bearer token payload. ImpersonatedBy is set on shadow
// logins to the id of the admin who issued the token.
type Claims struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	ImpersonatedBy string `json:"imp,omitempty"`
	jwt.RegisteredClaims
}

type AuthService struct {
	store        *repository.Store
	emailService *EmailService
	jwtSecret    string
	jwtExpiry    time.Duration
	adminEmail   string
	bcryptCost   int
	now          func() time.Time
}

func NewAuthService(
	store *repository.Store,
	emailService *EmailService,
	jwtSecret string,
	jwtExpiry time.Duration,
	adminEmail string,
) *AuthService {
	return &AuthService{
		store:        store,
		emailService: emailService,
		jwtSecret:    jwtSecret,
		jwtExpiry:    jwtExpiry,
		adminEmail:   strings.ToLower(strings.TrimSpace(adminEmail)),
		bcryptCost:   bcrypt.DefaultCost,
		now:          utcNow,
	}
}

// Register creates an account and returns its id. The account whose email
// matches ADMIN_EMAIL is created with the admin role.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))

	err := validation.ValidateName(name)
	if err != nil {
		return "", apperr.Validation(err.Error())
	}
	err = validation.ValidateEmail(email)
	if err != nil {
		return "", apperr.Validation(err.Error())
	}
	err = validation.ValidatePassword(password)
	if err != nil {
		return "", apperr.Validation(err.Error())
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      s.adminEmail != "" && email == s.adminEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.Users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return "", apperr.Conflict("email already exists")
		}
		return "", storeErr("create user", err)
	}

	err = s.emailService.SendWelcomeEmail(ctx, user.Email, user.Name)
	if err != nil {
		slog.Warn("failed to send welcome email", "error", err, "user_id", user.ID)
	}

	slog.Info("user registered", "user_id", user.ID, "is_admin", user.IsAdmin)
	return user.ID, nil
}

// Login returns a signed token. Unknown email and wrong password fail with
// the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.store.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, storeErr("get user", err)
	}

	err = s.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.GenerateJWT(user, "")
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return token, user, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) GenerateJWT(user *model.User, impersonatedBy string) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:         user.ID,
		Email:          user.Email,
		ImpersonatedBy: impersonatedBy,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// Authenticate verifies a bearer token and returns its claims.
func (s *AuthService) Authenticate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, apperr.Unauthorized("missing bearer token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	if claims.UserID == "" {
		return nil, apperr.Unauthorized("invalid or expired token")
	}

	return claims, nil
}

// Impersonate issues a token for targetUserID on behalf of an admin.
func (s *AuthService) Impersonate(ctx context.Context, adminID, targetUserID string) (string, *model.User, error) {
	target, err := s.store.Users.ByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, apperr.NotFound("user not found")
		}
		return "", nil, storeErr("get user", err)
	}

	token, err := s.GenerateJWT(target, adminID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	slog.Warn("shadow login issued", "admin_id", adminID, "user_id", target.ID)
	return token, target, nil
}
