package mailjet

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shineum/mailjet-transport/internal/email"
	mjapi "github.com/shineum/mailjet-transport/internal/mailjet"
	"github.com/shineum/mailjet-transport/internal/transport"
)

type mockPoster struct {
	resp  *mjapi.Response
	err   error
	calls int
}

func (m *mockPoster) Post(_ context.Context, _ mjapi.Resource, _ any) (*mjapi.Response, error) {
	m.calls++
	return m.resp, m.err
}

func testMessage(to string) *email.Message {
	return email.NewMessage("Hi", "hello", email.ContentTypeText).
		SetFrom("sender@example.com", "").
		AddTo(to, "")
}

func TestSend_Success(t *testing.T) {
	t.Parallel()

	poster := &mockPoster{resp: &mjapi.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"Sent":[{"Email":"alice@example.com","MessageID":1}]}`),
	}}
	p := New(transport.New("key", "secret", transport.WithClient(poster)))

	if err := p.Send(context.Background(), testMessage("alice@example.com")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poster.calls != 1 {
		t.Errorf("calls: got %d, want 1", poster.calls)
	}
}

func TestSend_Rejected(t *testing.T) {
	t.Parallel()

	poster := &mockPoster{resp: &mjapi.Response{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"ErrorMessage":"invalid sender"}`),
	}}
	p := New(transport.New("key", "secret", transport.WithClient(poster)))

	err := p.Send(context.Background(), testMessage("alice@example.com"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var derr *DeliveryError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DeliveryError, got %T", err)
	}
	if len(derr.Failed) != 1 || derr.Failed[0].Email != "alice@example.com" {
		t.Errorf("Failed: got %v, want [alice@example.com]", derr.Failed)
	}

	var rerr *mjapi.RejectionError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected wrapped *RejectionError, got %v", err)
	}
	if rerr.Message != "invalid sender" {
		t.Errorf("Message: got %q, want %q", rerr.Message, "invalid sender")
	}
}

func TestSend_NetworkError(t *testing.T) {
	t.Parallel()

	netErr := errors.New("connection refused")
	poster := &mockPoster{err: netErr}
	p := New(transport.New("key", "secret", transport.WithClient(poster)))

	err := p.Send(context.Background(), testMessage("alice@example.com"))
	if !errors.Is(err, netErr) {
		t.Errorf("got %v, want wrapped %v", err, netErr)
	}
}

func TestSend_MissingCredentials(t *testing.T) {
	t.Parallel()

	p := New(transport.New("", ""))

	err := p.Send(context.Background(), testMessage("alice@example.com"))
	if !errors.Is(err, mjapi.ErrConfiguration) {
		t.Errorf("got %v, want %v", err, mjapi.ErrConfiguration)
	}
}

func TestSend_CallDisabled(t *testing.T) {
	t.Parallel()

	p := New(transport.New("key", "secret", transport.WithCall(false)))

	if err := p.Send(context.Background(), testMessage("alice@example.com")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSendBatch(t *testing.T) {
	t.Parallel()

	poster := &mockPoster{resp: &mjapi.Response{
		StatusCode: http.StatusOK,
		Body: []byte(`{"Messages":[
			{"Status":"success","To":[{"Email":"a@example.com"}]},
			{"Status":"success","To":[{"Email":"b@example.com"}]}
		]}`),
	}}
	tr := transport.New("key", "secret",
		transport.WithClient(poster),
		transport.WithClientOptions(mjapi.Options{Version: "v3.1"}),
	)
	p := New(tr)

	msgs := []*email.Message{testMessage("a@example.com"), testMessage("b@example.com")}
	if err := p.SendBatch(context.Background(), msgs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poster.calls != 1 {
		t.Errorf("calls: got %d, want 1", poster.calls)
	}
}

func TestSendBatch_RejectedReportsAllRecipients(t *testing.T) {
	t.Parallel()

	poster := &mockPoster{resp: &mjapi.Response{StatusCode: http.StatusInternalServerError, Body: []byte(`oops`)}}
	p := New(transport.New("key", "secret", transport.WithClient(poster)))

	msgs := []*email.Message{testMessage("a@example.com"), testMessage("b@example.com")}
	err := p.SendBatch(context.Background(), msgs)

	var derr *DeliveryError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DeliveryError, got %v", err)
	}
	if len(derr.Failed) != 2 {
		t.Errorf("Failed: got %d addresses, want 2", len(derr.Failed))
	}
}

func TestSend_WithoutToRecipients(t *testing.T) {
	t.Parallel()

	ccOnly := func() *email.Message {
		return email.NewMessage("Hi", "hello", email.ContentTypeText).
			SetFrom("sender@example.com", "").
			AddCc("carol@example.com", "")
	}
	bccOnly := func() *email.Message {
		return email.NewMessage("Hi", "hello", email.ContentTypeText).
			SetFrom("sender@example.com", "").
			AddBcc("dave@example.com", "")
	}
	ok := &mjapi.Response{StatusCode: http.StatusOK, Body: []byte(`{"Sent":[{"Email":"x@example.com"}]}`)}
	rejected := &mjapi.Response{StatusCode: http.StatusBadRequest, Body: []byte(`{"ErrorMessage":"bad request"}`)}
	netErr := errors.New("dial tcp: connection refused")

	tests := []struct {
		name    string
		msg     func() *email.Message
		resp    *mjapi.Response
		err     error
		wantErr bool
	}{
		{name: "cc only success", msg: ccOnly, resp: ok},
		{name: "bcc only success", msg: bccOnly, resp: ok},
		{name: "cc only rejected", msg: ccOnly, resp: rejected, wantErr: true},
		{name: "bcc only rejected", msg: bccOnly, resp: rejected, wantErr: true},
		{name: "cc only network error", msg: ccOnly, err: netErr, wantErr: true},
		{name: "bcc only network error", msg: bccOnly, err: netErr, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			poster := &mockPoster{resp: tt.resp, err: tt.err}
			p := New(transport.New("key", "secret", transport.WithClient(poster)))

			err := p.Send(context.Background(), tt.msg())
			if !tt.wantErr {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			var derr *DeliveryError
			if !errors.As(err, &derr) {
				t.Fatalf("expected *DeliveryError, got %v", err)
			}
			if len(derr.Failed) != 0 {
				t.Errorf("Failed: got %v, want none", derr.Failed)
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Errorf("got %v, want wrapped %v", err, tt.err)
			}
			if tt.resp != nil {
				var rerr *mjapi.RejectionError
				if !errors.As(err, &rerr) {
					t.Errorf("expected wrapped *RejectionError, got %v", err)
				}
			}
		})
	}
}

func TestSendBatch_BccOnlyRejected(t *testing.T) {
	t.Parallel()

	poster := &mockPoster{resp: &mjapi.Response{StatusCode: http.StatusBadRequest, Body: []byte(`{}`)}}
	p := New(transport.New("key", "secret", transport.WithClient(poster)))

	msgs := []*email.Message{
		email.NewMessage("Hi", "hello", "").SetFrom("sender@example.com", "").AddBcc("a@example.com", ""),
		email.NewMessage("Hi", "hello", "").SetFrom("sender@example.com", "").AddBcc("b@example.com", ""),
	}
	if err := p.SendBatch(context.Background(), msgs); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestDeliveryError_Message(t *testing.T) {
	t.Parallel()

	err := &DeliveryError{
		Failed: []email.Address{{Email: "a@example.com"}, {Email: "b@example.com"}},
		Err:    errors.New("boom"),
	}
	want := "mailjet delivery failed for a@example.com, b@example.com: boom"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	noRecipients := &DeliveryError{Err: errors.New("boom")}
	want = "mailjet delivery failed: boom"
	if got := noRecipients.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	p := New(transport.New("key", "secret"))
	if p.Name() != "mailjet" {
		t.Errorf("Name: got %q, want %q", p.Name(), "mailjet")
	}
}
