// Package auth mints and verifies stateless access tokens.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenMalformed covers bad signatures, unexpected algorithms and
	// unparsable tokens. Clients must re-authenticate.
	ErrTokenMalformed = errors.New("malformed access token")
	// ErrTokenExpired is returned for correctly signed tokens past their expiry.
	// Clients may attempt a refresh.
	ErrTokenExpired = errors.New("access token expired")
)

// Claims embeds the registered claims plus the caller's role.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Identity is what a verified access token proves.
type Identity struct {
	UserID  uint
	Role    string
	TokenID string
}

type Signer struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// NewSigner returns a signer for one of HS256, HS384 or HS512.
func NewSigner(secret, algorithm string) (*Signer, error) {
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if len(secret) < 32 {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	return &Signer{
		secret: []byte(secret),
		method: method,
		now:    time.Now,
	}, nil
}

// Mint signs a token for userID valid for ttl.
func (s *Signer) Mint(userID uint, role string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Role: role,
	}

	return jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
}

// Verify checks the signature first and the expiry second.
func (s *Signer) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return nil, ErrTokenMalformed
	}

	return &Identity{
		UserID:  uint(userID),
		Role:    claims.Role,
		TokenID: claims.ID,
	}, nil
}
