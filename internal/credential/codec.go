package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken means the presented token failed signature or claim
// validation. The caller must re-authenticate; there is nothing to retry.
var ErrInvalidToken = errors.New("credential: invalid token")

// defaultTokenLife is how long the signed wrapper itself stays acceptable.
// The access token inside expires much sooner and is refreshed in place.
const defaultTokenLife = 7 * 24 * time.Hour

type claims struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IssuedAtMS   int64  `json:"issued_at"`
	ExpiresAtMS  int64  `json:"expires_at"`
	jwt.RegisteredClaims
}

// Codec encodes a Bundle into a signed, tamper-evident token the caller
// presents on every request. Pure: no I/O, no clock beyond issue stamping.
type Codec struct {
	secret []byte
	life   time.Duration
	clock  func() time.Time
}

// NewCodec builds a Codec signing with secret. A zero life uses the default
// seven days.
func NewCodec(secret []byte, life time.Duration) *Codec {
	if life <= 0 {
		life = defaultTokenLife
	}
	return &Codec{secret: secret, life: life, clock: time.Now}
}

// Encode signs the bundle into its transport form.
func (c *Codec) Encode(b Bundle) (string, error) {
	now := c.clock()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		IssuedAtMS:   b.IssuedAt.UnixMilli(),
		ExpiresAtMS:  b.ExpiresAt.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.life)),
		},
	})
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign credential token: %w", err)
	}
	return signed, nil
}

// Decode verifies the token and recovers the bundle. Any signature, format,
// or wrapper-expiry problem comes back as ErrInvalidToken.
func (c *Codec) Decode(token string) (Bundle, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(token, &cl, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return Bundle{
		AccessToken:  cl.AccessToken,
		RefreshToken: cl.RefreshToken,
		IssuedAt:     time.UnixMilli(cl.IssuedAtMS),
		ExpiresAt:    time.UnixMilli(cl.ExpiresAtMS),
	}, nil
}
