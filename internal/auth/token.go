package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

// Claims is the token payload.
type Claims struct {
	User string `json:"user"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens against an RSA public key.
type Verifier struct {
	key    *rsa.PublicKey
	leeway time.Duration
	now    func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithLeeway tolerates clock skew between edge and cloud when checking
// exp and iat.
func WithLeeway(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.leeway = d
	}
}

// WithVerifierClock overrides the time source used for expiry checks.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a Verifier from a PEM-encoded RSA public key.
func NewVerifier(publicPEM []byte, opts ...VerifierOption) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	v := &Verifier{key: key, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// LoadVerifier reads a PEM public key file and creates a Verifier.
func LoadVerifier(path string, opts ...VerifierOption) (*Verifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return NewVerifier(data, opts...)
}

// Verify checks the token's signature and expiry and returns the verified
// identity. Every failure is an *ir.Error with ErrCodeAuthFailed.
func (v *Verifier) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ir.NewAuthError("missing bearer token", nil)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", ir.NewAuthError(describe(err), err)
	}

	user := strings.TrimSpace(claims.User)
	if user == "" {
		return "", ir.NewAuthError("token has no user claim", nil)
	}
	return user, nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid token signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed token"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "token is missing a required claim"
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "token used before issued"
	}
	return "invalid token"
}

// Issuer signs tokens with an RSA private key.
type Issuer struct {
	key *rsa.PrivateKey
	ttl time.Duration
	now func() time.Time
}

// NewIssuer creates an Issuer from a PEM-encoded RSA private key.
func NewIssuer(privatePEM []byte, ttl time.Duration) (*Issuer, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &Issuer{key: key, ttl: ttl, now: time.Now}, nil
}

// LoadIssuer reads a PEM private key file and creates an Issuer.
func LoadIssuer(path string, ttl time.Duration) (*Issuer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	return NewIssuer(data, ttl)
}

// SetClock overrides the time source used for iat and exp.
func (i *Issuer) SetClock(now func() time.Time) {
	i.now = now
}

// Issue signs a token for user, valid from now until now+ttl.
func (i *Issuer) Issue(user string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", fmt.Errorf("issue token: user is empty")
	}
	now := i.now()
	claims := &Claims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// BearerToken extracts the token from an Authorization header value.
// Returns "" if the header is not a Bearer credential.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
