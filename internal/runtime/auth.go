// internal/runtime/auth.go
package runtime

import (
	"context"
	"log/slog"
	"os"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"

	gc "github.com/propflow/mailtriage/internal/gmail"
)

// NewLocalClient authenticates with the gmailctl credential cache in cfgDir.
// Used by the CLI; the server receives per-request tokens instead.
func NewLocalClient(ctx context.Context, cfgDir string) (gc.Client, error) {
	svc, err := (localcred.Provider{}).Service(ctx, cfgDir)
	if err != nil {
		return nil, err
	}
	return NewAPIClient(svc), nil
}

func DefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
