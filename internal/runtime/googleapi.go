// internal/runtime/googleapi.go — adapts *gmail.Service to our small interface
package runtime

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	gc "github.com/propflow/mailtriage/internal/gmail"
)

type apiClient struct{ svc *gmailapi.Service }

// NewAPIClient wraps an authenticated *gmail.Service.
func NewAPIClient(svc *gmailapi.Service) gc.Client { return &apiClient{svc} }

// NewTokenClient builds a client from a bare bearer token. The caller is
// responsible for having validated the token's expiry first.
func NewTokenClient(ctx context.Context, accessToken string) (gc.Client, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, err
	}
	return NewAPIClient(svc), nil
}

func (g *apiClient) ListMessageIDs(ctx context.Context, maxResults int64, query string) ([]gc.MessageID, error) {
	call := g.svc.Users.Messages.List("me").MaxResults(maxResults)
	if query != "" {
		call = call.Q(query)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, gc.WrapError("list messages", err)
	}
	ids := make([]gc.MessageID, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, gc.MessageID(m.Id))
	}
	return ids, nil
}

func (g *apiClient) GetMessage(ctx context.Context, id gc.MessageID) (gc.Message, error) {
	msg, err := g.svc.Users.Messages.Get("me", string(id)).Format("full").Context(ctx).Do()
	if err != nil {
		return gc.Message{}, gc.WrapError("get message "+string(id), err)
	}
	return toMessage(msg), nil
}

func (g *apiClient) ListLabels(ctx context.Context) ([]gc.Label, error) {
	res, err := g.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, gc.WrapError("list labels", err)
	}
	labels := make([]gc.Label, 0, len(res.Labels))
	for _, l := range res.Labels {
		labels = append(labels, gc.Label{
			ID:                    gc.LabelID(l.Id),
			Name:                  l.Name,
			LabelListVisibility:   l.LabelListVisibility,
			MessageListVisibility: l.MessageListVisibility,
		})
	}
	return labels, nil
}

func (g *apiClient) CreateLabel(ctx context.Context, name string) (gc.Label, error) {
	created, err := g.svc.Users.Labels.Create("me", &gmailapi.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return gc.Label{}, gc.WrapError("create label "+name, err)
	}
	return gc.Label{
		ID:                    gc.LabelID(created.Id),
		Name:                  created.Name,
		LabelListVisibility:   created.LabelListVisibility,
		MessageListVisibility: created.MessageListVisibility,
	}, nil
}

func (g *apiClient) ModifyLabels(ctx context.Context, id gc.MessageID, ops gc.ModifyOps) error {
	req := &gmailapi.ModifyMessageRequest{}
	if len(ops.Add) > 0 {
		req.AddLabelIds = toStrings(ops.Add)
	}
	if len(ops.Remove) > 0 {
		req.RemoveLabelIds = toStrings(ops.Remove)
	}
	_, err := g.svc.Users.Messages.Modify("me", string(id), req).Context(ctx).Do()
	return gc.WrapError("modify message "+string(id), err)
}

func toMessage(msg *gmailapi.Message) gc.Message {
	out := gc.Message{
		ID:       gc.MessageID(msg.Id),
		ThreadID: gc.ThreadID(msg.ThreadId),
		Snippet:  msg.Snippet,
	}
	for _, l := range msg.LabelIds {
		out.LabelIDs = append(out.LabelIDs, gc.LabelID(l))
	}
	if msg.InternalDate > 0 {
		out.InternalDate = time.UnixMilli(msg.InternalDate)
	}
	if msg.Payload == nil {
		return out
	}
	for _, h := range msg.Payload.Headers {
		out.Headers = append(out.Headers, gc.Header{Name: h.Name, Value: h.Value})
	}
	if msg.Payload.Body != nil {
		out.Body.Payload = gc.BodyPart{MIMEType: msg.Payload.MimeType, Data: msg.Payload.Body.Data}
	}
	for _, p := range msg.Payload.Parts {
		part := gc.BodyPart{MIMEType: p.MimeType}
		if p.Body != nil {
			part.Data = p.Body.Data
		}
		out.Body.Parts = append(out.Body.Parts, part)
	}
	return out
}

func toStrings(ids []gc.LabelID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
