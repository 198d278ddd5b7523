package triage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/propflow/mailtriage/internal/gmail"
)

// fakeClient is an in-memory gmail.Client shared by the triage tests.
type fakeClient struct {
	mu sync.Mutex

	listIDs  []gmail.MessageID
	listErr  error
	messages map[gmail.MessageID]gmail.Message
	getErrs  map[gmail.MessageID]error
	getDelay map[gmail.MessageID]time.Duration

	labels        []gmail.Label
	listLabelsErr error
	createErr     error
	// createAppears makes a failed create visible on the next list, to
	// simulate losing a creation race.
	createAppears bool
	nextLabelID   int

	modifyCalls []modifyCall
	modifyErrs  []error

	calls []string
}

type modifyCall struct {
	id  gmail.MessageID
	ops gmail.ModifyOps
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		messages: map[gmail.MessageID]gmail.Message{},
		getErrs:  map[gmail.MessageID]error{},
		getDelay: map[gmail.MessageID]time.Duration{},
	}
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) ListMessageIDs(ctx context.Context, maxResults int64, query string) ([]gmail.MessageID, error) {
	_ = ctx
	_ = query
	f.record("list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := f.listIDs
	if int64(len(ids)) > maxResults {
		ids = ids[:maxResults]
	}
	return append([]gmail.MessageID(nil), ids...), nil
}

func (f *fakeClient) GetMessage(ctx context.Context, id gmail.MessageID) (gmail.Message, error) {
	f.record("get " + string(id))
	if d, ok := f.getDelay[id]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return gmail.Message{}, ctx.Err()
		}
	}
	if err, ok := f.getErrs[id]; ok {
		return gmail.Message{}, err
	}
	msg, ok := f.messages[id]
	if !ok {
		return gmail.Message{}, fmt.Errorf("%w: no message %s", gmail.ErrRejected, id)
	}
	return msg, nil
}

func (f *fakeClient) ListLabels(ctx context.Context) ([]gmail.Label, error) {
	_ = ctx
	f.record("listLabels")
	if f.listLabelsErr != nil {
		return nil, f.listLabelsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gmail.Label(nil), f.labels...), nil
}

func (f *fakeClient) CreateLabel(ctx context.Context, name string) (gmail.Label, error) {
	_ = ctx
	f.record("createLabel " + name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		err := f.createErr
		if f.createAppears {
			f.nextLabelID++
			f.labels = append(f.labels, gmail.Label{
				ID:   gmail.LabelID(fmt.Sprintf("Label_%d", f.nextLabelID)),
				Name: name,
			})
		}
		return gmail.Label{}, err
	}
	f.nextLabelID++
	l := gmail.Label{ID: gmail.LabelID(fmt.Sprintf("Label_%d", f.nextLabelID)), Name: name}
	f.labels = append(f.labels, l)
	return l, nil
}

func (f *fakeClient) ModifyLabels(ctx context.Context, id gmail.MessageID, ops gmail.ModifyOps) error {
	_ = ctx
	f.record("modify " + string(id))
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.modifyErrs) > 0 {
		err := f.modifyErrs[0]
		f.modifyErrs = f.modifyErrs[1:]
		if err != nil {
			return err
		}
	}
	f.modifyCalls = append(f.modifyCalls, modifyCall{id: id, ops: ops})
	return nil
}

var _ gmail.Client = (*fakeClient)(nil)

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bodyData(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func textMessage(id gmail.MessageID, subject, from, body string) gmail.Message {
	return gmail.Message{
		ID: id,
		Headers: []gmail.Header{
			{Name: "Subject", Value: subject},
			{Name: "From", Value: from},
		},
		Body: gmail.Body{Payload: gmail.BodyPart{MIMEType: "text/plain", Data: bodyData(body)}},
	}
}

func TestListClassifiedDropsFailedDetail(t *testing.T) {
	fake := newFakeClient()
	fake.listIDs = []gmail.MessageID{"a", "b", "c"}
	fake.messages["a"] = textMessage("a", "Work order for unit 2", "tenant@example.com", "")
	fake.getErrs["b"] = fmt.Errorf("%w: boom", gmail.ErrTransient)
	fake.messages["c"] = textMessage("c", "Lunch?", "friend@example.com", "")

	fetcher := NewFetcher(fake, nil, slogDiscard())
	msgs, err := fetcher.ListClassified(context.Background(), 3, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "a" || msgs[1].ID != "c" {
		t.Fatalf("unexpected ids: %s, %s", msgs[0].ID, msgs[1].ID)
	}
	if msgs[0].Category != CategoryWorkOrder {
		t.Fatalf("message a classified %s", msgs[0].Category)
	}
	if msgs[1].Category != CategoryUncategorized {
		t.Fatalf("message c classified %s", msgs[1].Category)
	}
}

func TestListClassifiedPreservesListOrder(t *testing.T) {
	fake := newFakeClient()
	fake.listIDs = []gmail.MessageID{"slow", "fast"}
	fake.messages["slow"] = textMessage("slow", "first in list", "a@example.com", "")
	fake.messages["fast"] = textMessage("fast", "second in list", "b@example.com", "")
	// The first listed message completes last; output order must not change.
	fake.getDelay["slow"] = 30 * time.Millisecond

	fetcher := NewFetcher(fake, nil, slogDiscard())
	fetcher.FanOut = 2
	msgs, err := fetcher.ListClassified(context.Background(), 10, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "slow" || msgs[1].ID != "fast" {
		t.Fatalf("order not preserved: %s, %s", msgs[0].ID, msgs[1].ID)
	}
}

func TestListClassifiedListFailureIsFatal(t *testing.T) {
	fake := newFakeClient()
	fake.listErr = fmt.Errorf("%w: 503", gmail.ErrTransient)

	fetcher := NewFetcher(fake, nil, slogDiscard())
	if _, err := fetcher.ListClassified(context.Background(), 5, ""); !errors.Is(err, gmail.ErrTransient) {
		t.Fatalf("want transient error, got %v", err)
	}
}

func TestListClassifiedEmpty(t *testing.T) {
	fake := newFakeClient()
	fetcher := NewFetcher(fake, nil, slogDiscard())
	msgs, err := fetcher.ListClassified(context.Background(), 5, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}
}

func TestListClassifiedUndecodableBodyDegrades(t *testing.T) {
	fake := newFakeClient()
	fake.listIDs = []gmail.MessageID{"x"}
	msg := textMessage("x", "Approval needed for repairs", "owner@example.com", "")
	msg.Body.Payload.Data = "!!!not-base64!!!"
	fake.messages["x"] = msg

	fetcher := NewFetcher(fake, nil, slogDiscard())
	msgs, err := fetcher.ListClassified(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	// Headers alone still classify; the bad body never fails the fetch.
	if msgs[0].Category != CategoryApproval {
		t.Fatalf("classified %s", msgs[0].Category)
	}
}

func TestFilterByCategory(t *testing.T) {
	msgs := []Message{
		{Message: gmail.Message{ID: "a"}, Category: CategoryWorkOrder},
		{Message: gmail.Message{ID: "b"}, Category: CategoryApproval},
		{Message: gmail.Message{ID: "c"}, Category: CategoryWorkOrder},
	}
	got := FilterByCategory(msgs, CategoryWorkOrder)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
}
