package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"vaccine-reservation-api/internal/model"
)

var (
	ErrBadToken        = errors.New("invalid token")
	ErrBadCredentials  = errors.New("invalid credentials")
	ErrUsernameTaken   = errors.New("username taken")
	ErrUnknownUser     = errors.New("unknown user")
	ErrTooManyAttempts = errors.New("too many login attempts")
	ErrBadRegistration = errors.New("username and a password of at least 8 characters are required")
)

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

type Claims struct {
	Username string `json:"sub_name"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// MakeToken signs a session token valid for 12 hours.
func MakeToken(s model.Session, secret string) (string, error) {
	c := Claims{
		Username: s.Username,
		Role:     string(s.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

func ParseToken(raw, secret string) (model.Session, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return model.Session{}, ErrBadToken
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return model.Session{}, ErrBadToken
	}
	role := model.Role(c.Role)
	if role != model.RolePatient && role != model.RoleCaregiver {
		return model.Session{}, ErrBadToken
	}
	return model.Session{Role: role, Username: c.Username}, nil
}

// UserStore is the credential store behind Register and Login.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByUsername(ctx context.Context, username string) (*model.User, error)
}

// Service owns account registration and credential checks, and turns a
// successful login into a signed session token.
type Service struct {
	users  UserStore
	secret string
	limit  *LoginLimiter
	log    zerolog.Logger
}

func NewService(users UserStore, secret string, limit *LoginLimiter, log zerolog.Logger) *Service {
	return &Service{users: users, secret: secret, limit: limit, log: log}
}

func (s *Service) Register(ctx context.Context, role model.Role, username, password string) error {
	if username == "" || len(password) < 8 {
		return ErrBadRegistration
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return err
	}
	s.log.Info().Str("username", username).Str("role", string(role)).Msg("account created")
	return nil
}

// Login verifies the credentials for the expected role. A wrong password, a
// missing account, and a role mismatch all answer ErrBadCredentials.
func (s *Service) Login(ctx context.Context, role model.Role, username, password string) (string, error) {
	if s.limit != nil && !s.limit.Allow(username) {
		return "", ErrTooManyAttempts
	}
	u, err := s.users.UserByUsername(ctx, username)
	if errors.Is(err, ErrUnknownUser) {
		return "", ErrBadCredentials
	}
	if err != nil {
		return "", err
	}
	if u.Role != role || !CheckPassword(u.PasswordHash, password) {
		return "", ErrBadCredentials
	}
	return MakeToken(model.Session{Role: u.Role, Username: u.Username}, s.secret)
}

// Authenticate turns a token back into the session it encodes.
func (s *Service) Authenticate(raw string) (model.Session, error) {
	return ParseToken(raw, s.secret)
}
