package triage

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/propflow/mailtriage/internal/gmail"
)

// ErrUndecodableBody is the typed soft failure for body data that is not
// valid base64. Callers log it and classify against an empty body; it never
// fails a fetch.
var ErrUndecodableBody = errors.New("triage: undecodable body data")

// ExtractBody pulls best-effort plain text from the message's body tree.
// Precedence: top-level payload if it carries data, then among alternative
// parts text/plain over text/html, then empty. A message with no text at all
// returns ("", nil); only a decode failure returns a non-nil error, and even
// then the text result is usable (empty).
func ExtractBody(msg gmail.Message) (string, error) {
	if data := msg.Body.Payload.Data; data != "" {
		return decodeBody(data)
	}

	var htmlPart string
	for _, p := range msg.Body.Parts {
		switch p.MIMEType {
		case "text/plain":
			if p.Data != "" {
				return decodeBody(p.Data)
			}
		case "text/html":
			if htmlPart == "" {
				htmlPart = p.Data
			}
		}
	}
	if htmlPart != "" {
		return decodeBody(htmlPart)
	}
	return "", nil
}

// decodeBody decodes base64url body data, falling back to standard base64
// since the API has been seen emitting both.
func decodeBody(data string) (string, error) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b), nil
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b), nil
	}
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUndecodableBody, err)
	}
	return string(b), nil
}
