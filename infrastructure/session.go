package infrastructure

import (
	"errors"
	"fmt"
	"time"

	"cardroom/domain/entities"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession is returned for any token that does not verify
var ErrInvalidSession = errors.New("invalid session token")

// Session is the verified identity behind a connection
type Session struct {
	Username string
	Role     entities.Role
}

// IsAdmin reports whether the session carries the admin role
func (s *Session) IsAdmin() bool {
	return s.Role == entities.RoleAdmin
}

// sessionClaims carries the username in sub and the role in a private claim
type sessionClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SessionVerifier signs and verifies HMAC-SHA256 session tokens
type SessionVerifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionVerifier creates a verifier; ttl 0 issues tokens without expiry
func NewSessionVerifier(secret string, ttl time.Duration) *SessionVerifier {
	return &SessionVerifier{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a signed token for username
func (v *SessionVerifier) Issue(username string, role entities.Role) (string, error) {
	if username == "" {
		return "", entities.NewValidationError("username", "must not be empty")
	}
	now := v.now()
	claims := sessionClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  username,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if v.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(v.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString and returns the session it names
func (v *SessionVerifier) Verify(tokenString string) (*Session, error) {
	claims := &sessionClaims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !t.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidSession)
	}

	role := entities.Role(claims.Role)
	if role != entities.RoleAdmin {
		role = entities.RolePlayer
	}
	return &Session{Username: claims.Subject, Role: role}, nil
}
