package gmail

import "context"

// Client is the narrow Gmail surface required by mailtriage.
type Client interface {
	ListMessageIDs(ctx context.Context, maxResults int64, query string) ([]MessageID, error)
	GetMessage(ctx context.Context, id MessageID) (Message, error)
	ListLabels(ctx context.Context) ([]Label, error)
	CreateLabel(ctx context.Context, name string) (Label, error)
	ModifyLabels(ctx context.Context, id MessageID, ops ModifyOps) error
}
