package jwt

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 verifies EdDSA signatures (default).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 verifies HMAC-SHA256 signatures with a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

var (
	// ErrTokenExpired indicates a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates a malformed token or bad signature.
	ErrTokenInvalid = errors.New("invalid token")
)

// Config holds verification parameters.
type Config struct {
	SigningMethod SigningMethod
	// Key is the HS256 shared secret or the raw/PEM ed25519 key material.
	Key    []byte
	Issuer string
	Leeway time.Duration
}

// AccessClaims are the claims the engine reads from an access token.
type AccessClaims struct {
	UID      string `json:"uid"`
	DeviceID string `json:"did,omitempty"`
	Method   string `json:"amr,omitempty"`
	jwt.RegisteredClaims
}

// Manager parses and mints access tokens.
type Manager struct {
	config Config
}

// NewManager validates the configuration and returns a manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Key) == 0 {
			return nil, errors.New("hs256 requires a shared secret")
		}
	case MethodEd25519:
		if len(cfg.Key) == 0 {
			return nil, errors.New("ed25519 requires key material")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	return &Manager{config: cfg}, nil
}

// ParseAccess verifies tokenStr and returns its claims. Expired tokens
// yield ErrTokenExpired; everything else wrong yields ErrTokenInvalid.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return j.verifyKey()
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.ExpiresAt == nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ExpiresAt is a convenience wrapper returning only the token expiry.
func (j *Manager) ExpiresAt(tokenStr string) (time.Time, error) {
	claims, err := j.ParseAccess(tokenStr)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}

// CreateAccess mints a signed token. Used by transport fakes and tests;
// production tokens come from the server side.
func (j *Manager) CreateAccess(uid, deviceID, method string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UID:      uid,
		DeviceID: deviceID,
		Method:   method,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(j.method(), claims)
	key, err := j.signKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(key)
}

func (j *Manager) method() jwt.SigningMethod {
	if j.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (j *Manager) signKey() (interface{}, error) {
	if j.config.SigningMethod == MethodHS256 {
		return j.config.Key, nil
	}
	return parseEdPrivateKey(j.config.Key)
}

func (j *Manager) verifyKey() (interface{}, error) {
	if j.config.SigningMethod == MethodHS256 {
		return j.config.Key, nil
	}
	// Derive the public key when a private key was configured, e.g. in
	// loopback test setups.
	if priv, err := parseEdPrivateKey(j.config.Key); err == nil {
		return priv.Public(), nil
	}
	return parseEdPublicKey(j.config.Key)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
