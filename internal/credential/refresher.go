package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrRefreshFailed means the provider rejected the refresh token. Fatal to
// the session: the caller must run the authorization flow again, not retry.
var ErrRefreshFailed = errors.New("credential: refresh failed")

// accessTokenLife is the validity window stamped on a freshly refreshed
// access token. Google issues one-hour tokens.
const accessTokenLife = time.Hour

// Refresher exchanges an expired access token for a fresh one using the
// bundle's refresh token. The refresh token itself is never rotated.
type Refresher struct {
	Config *oauth2.Config
	Logger *slog.Logger
	Clock  func() time.Time
}

// NewRefresher builds a Refresher for the given OAuth client. tokenURL
// overrides the Google token endpoint when non-empty (tests point it at a
// local server).
func NewRefresher(clientID, clientSecret, tokenURL string, logger *slog.Logger) *Refresher {
	endpoint := google.Endpoint
	if tokenURL != "" {
		endpoint = oauth2.Endpoint{TokenURL: tokenURL}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
		},
		Logger: logger,
		Clock:  time.Now,
	}
}

// EnsureValid returns a bundle whose access token is usable right now.
// A still-valid bundle passes through untouched with refreshed=false. An
// expired one triggers exactly one refresh call; the returned bundle carries
// the new access token and a one-hour expiry. Callers that receive
// refreshed=true must re-encode and re-issue the credential to their
// transport before returning.
func (r *Refresher) EnsureValid(ctx context.Context, b Bundle) (Bundle, bool, error) {
	now := r.Clock()
	if b.Valid(now) {
		return b, false, nil
	}

	// Hand oauth2 a token it considers expired so TokenSource performs the
	// refresh grant unconditionally.
	stale := &oauth2.Token{
		RefreshToken: b.RefreshToken,
		Expiry:       now.Add(-time.Minute),
	}
	tok, err := r.Config.TokenSource(ctx, stale).Token()
	if err != nil {
		return Bundle{}, false, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	r.Logger.InfoContext(ctx, "refreshed access token", slog.Time("previous_expiry", b.ExpiresAt))
	return Bundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: b.RefreshToken,
		IssuedAt:     now,
		ExpiresAt:    now.Add(accessTokenLife),
	}, true, nil
}
