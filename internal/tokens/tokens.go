// Package tokens issues and verifies the access and refresh JWTs and hashes
// refresh token identifiers (rti) for storage.
package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"campusqa/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	Issuer   = "campusqa-api"
	Audience = "campusqa-client"

	rtiBytes = 32
)

var (
	// ErrTokenExpired is returned for a well-signed token past its exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers bad signatures, wrong algorithm, bad claims and malformed input.
	ErrTokenInvalid = errors.New("token invalid")
)

// AccessClaims are carried by access tokens. Subject is the user id.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// RefreshClaims are carried by refresh tokens. RTI is the random token id
// whose bcrypt hash is stored on the user row.
type RefreshClaims struct {
	RTI string `json:"rti"`
	jwt.RegisteredClaims
}

// Options configures a Service.
type Options struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	HashCost      int
}

// Service signs and verifies tokens. It is safe for concurrent use.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	hashCost      int
	now           func() time.Time
}

// NewService returns a token Service.
func NewService(opts Options) *Service {
	cost := opts.HashCost
	if cost == 0 {
		cost = 12
	}
	return &Service{
		accessSecret:  []byte(opts.AccessSecret),
		refreshSecret: []byte(opts.RefreshSecret),
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		hashCost:      cost,
		now:           time.Now,
	}
}

// NewServiceFromConfig builds a Service from application config.
func NewServiceFromConfig(cfg *config.Config) *Service {
	return NewService(Options{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     time.Duration(cfg.AccessTokenTTLSeconds) * time.Second,
		RefreshTTL:    time.Duration(cfg.RefreshTokenTTLSeconds) * time.Second,
		HashCost:      cfg.BcryptCost,
	})
}

// RefreshTTL is the lifetime of refresh tokens and of the refresh cookie.
func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// HashCost is the bcrypt cost used for rti hashes.
func (s *Service) HashCost() int {
	return s.hashCost
}

func (s *Service) registered(userID uint, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    Issuer,
		Audience:  jwt.ClaimStrings{Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

// IssueAccessToken signs a short-lived access token for userID.
func (s *Service) IssueAccessToken(userID uint) (string, error) {
	claims := AccessClaims{RegisteredClaims: s.registered(userID, s.accessTTL)}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs a refresh token carrying a fresh rti and returns both.
// Only a hash of the rti may be persisted.
func (s *Service) IssueRefreshToken(userID uint) (token, rti string, err error) {
	rti, err = newRTI()
	if err != nil {
		return "", "", err
	}
	claims := RefreshClaims{RTI: rti, RegisteredClaims: s.registered(userID, s.refreshTTL)}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", "", fmt.Errorf("sign refresh token: %w", err)
	}
	return token, rti, nil
}

// VerifyAccessToken checks signature, algorithm, issuer, audience and expiry
// and returns the subject user id.
func (s *Service) VerifyAccessToken(token string) (uint, error) {
	claims := &AccessClaims{}
	if err := s.parse(token, claims, s.accessSecret); err != nil {
		return 0, err
	}
	return parseSubject(claims.Subject)
}

// VerifyRefreshToken checks a refresh token and returns the subject and rti.
func (s *Service) VerifyRefreshToken(token string) (uint, string, error) {
	claims := &RefreshClaims{}
	if err := s.parse(token, claims, s.refreshSecret); err != nil {
		return 0, "", err
	}
	if claims.RTI == "" {
		return 0, "", ErrTokenInvalid
	}
	userID, err := parseSubject(claims.Subject)
	if err != nil {
		return 0, "", err
	}
	return userID, claims.RTI, nil
}

func (s *Service) parse(token string, claims jwt.Claims, secret []byte) error {
	if token == "" {
		return ErrTokenInvalid
	}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

// HashRTI hashes an rti with bcrypt at the configured cost.
func (s *Service) HashRTI(rti string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rti), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash rti: %w", err)
	}
	return string(hash), nil
}

// CompareRTI reports whether rti matches the stored hash.
func (s *Service) CompareRTI(rti, hash string) bool {
	if rti == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rti)) == nil
}

func parseSubject(sub string) (uint, error) {
	id, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrTokenInvalid
	}
	return uint(id), nil
}

// newRTI returns 256 random bits, base64url encoded without padding.
func newRTI() (string, error) {
	buf := make([]byte, rtiBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate rti: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
