package gmail

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Provider error kinds. Callers classify failures with errors.Is against
// these sentinels rather than inspecting HTTP codes.
var (
	// ErrAuth marks a 401/403 from the provider: the access token is no
	// longer usable and the caller must re-authenticate or refresh.
	ErrAuth = errors.New("gmail: unauthorized")

	// ErrRejected marks any other 4xx: the request itself is bad and
	// retrying the same call will not help.
	ErrRejected = errors.New("gmail: request rejected")

	// ErrTransient marks 5xx and transport-level failures: retrying the
	// whole operation is safe.
	ErrTransient = errors.New("gmail: transient provider failure")

	// ErrAlreadyExists marks a duplicate-resource conflict, e.g. a label
	// create racing another creator.
	ErrAlreadyExists = errors.New("gmail: resource already exists")
)

// WrapError classifies err into the taxonomy above, preserving the original
// error in the chain. A nil err returns nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		// No HTTP status: timeouts, connection resets, etc.
		return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}
	switch {
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("%s: %w: %w", op, ErrAuth, err)
	case apiErr.Code == http.StatusConflict:
		return fmt.Errorf("%s: %w: %w", op, ErrAlreadyExists, err)
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return fmt.Errorf("%s: %w: %w", op, ErrRejected, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}
}
