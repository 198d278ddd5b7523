// internal/gmail/types.go
package gmail

import (
	"strings"
	"time"
)

type MessageID string
type ThreadID string
type LabelID string

// Header is a single message header. Order is preserved as the provider
// returned it; lookups are case-insensitive by name.
type Header struct {
	Name  string
	Value string
}

// BodyPart is one node of the shallow body tree: either the top-level payload
// or one alternative part. Data is base64url as delivered by the API.
type BodyPart struct {
	MIMEType string
	Data     string
}

// Body is the message body tree. Gmail nests this arbitrarily for complex
// MIME; we model only the top-level payload and one flat list of alternative
// parts. Nested multiparts and message/rfc822 parts are not descended into.
type Body struct {
	Payload BodyPart
	Parts   []BodyPart
}

// Message is the full envelope returned by a detail fetch.
type Message struct {
	ID           MessageID
	ThreadID     ThreadID
	LabelIDs     []LabelID
	Headers      []Header
	Snippet      string
	Body         Body
	InternalDate time.Time
}

// Header returns the first header matching name, case-insensitively, or "".
func (m Message) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Label is Gmail label metadata.
type Label struct {
	ID                    LabelID
	Name                  string
	LabelListVisibility   string
	MessageListVisibility string
}

// ModifyOps describes a label mutation on a single message.
type ModifyOps struct {
	Add    []LabelID
	Remove []LabelID
}
