package payload

import (
	"encoding/base64"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/shineum/mailjet-transport/internal/email"
)

func TestV31_BuildScenario(t *testing.T) {
	t.Parallel()

	msg := email.NewMessage("Hi", "<p>hi</p>", email.ContentTypeHTML).
		AddTo("alice@x.com", "Alice").
		SetFrom("bob@y.com", "Bob")

	body, err := NewV31().Build(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("JSON marshal error: %v", err)
	}
	want := `{"Messages":[{"From":{"Email":"bob@y.com","Name":"Bob"},"To":[{"Email":"alice@x.com","Name":"Alice"}],"Subject":"Hi","HTMLPart":"<p>hi</p>"}]}`

	var gotV, wantV any
	if err := json.Unmarshal(got, &gotV); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(want), &wantV); err != nil {
		t.Fatalf("expected payload is not JSON: %v", err)
	}
	if !reflect.DeepEqual(gotV, wantV) {
		t.Errorf("payload:\ngot  %s\nwant %s", got, want)
	}
}

func TestV31_TextEmail(t *testing.T) {
	t.Parallel()

	msg := email.NewMessage("Test Subject", "Hello world!", email.ContentTypeText).
		AddTo("to@example.com", "To Name").
		SetFrom("from@example.com", "From Name")

	m := firstV31(t, mustBuild(t, NewV31(), msg))

	if m["TextPart"] != "Hello world!" {
		t.Errorf("TextPart: got %v, want %q", m["TextPart"], "Hello world!")
	}
	if _, ok := m["HTMLPart"]; ok {
		t.Error("HTMLPart should be omitted for a text-only message")
	}
}

func TestV31_FullMessage(t *testing.T) {
	t.Parallel()

	msg := email.NewMessage("Test Subject", "<p>Foo bar</p>", email.ContentTypeHTML)
	msg.Attach(&email.Attachment{Filename: "filename.png", ContentType: "image/png", Content: pngContent})
	msg.Embed(&email.Attachment{Filename: "filename.png", ContentType: "image/png", Content: pngContent, ContentID: "img1"})
	msg.AddTo("to@example.com", "To Name").
		SetFrom("from@example.com", "From Name").
		AddCc("cc-1@example.com", "CC 1 Name").
		AddCc("cc-2@example.com", "CC 2 Name").
		AddBcc("bcc-1@example.com", "BCC 1 Name").
		AddBcc("bcc-2@example.com", "").
		SetReplyTo("reply-to@example.com", "Reply To Name")

	m := firstV31(t, mustBuild(t, NewV31(), msg))

	if m["HTMLPart"] != "<p>Foo bar</p>" {
		t.Errorf("HTMLPart: got %v", m["HTMLPart"])
	}
	from := m["From"].(map[string]any)
	if from["Email"] != "from@example.com" || from["Name"] != "From Name" {
		t.Errorf("From: got %v", from)
	}
	if cc := m["Cc"].([]any); len(cc) != 2 {
		t.Errorf("Cc: got %d entries, want 2", len(cc))
	}
	bcc := m["Bcc"].([]any)
	if _, hasName := bcc[1].(map[string]any)["Name"]; hasName {
		t.Error("Bcc[1] without a display name should omit Name")
	}
	replyTo := m["ReplyTo"].(map[string]any)
	if replyTo["Email"] != "reply-to@example.com" || replyTo["Name"] != "Reply To Name" {
		t.Errorf("ReplyTo: got %v", replyTo)
	}
	if _, ok := m["Headers"]; ok {
		t.Error("Headers should be omitted when there are no user headers")
	}

	atts := m["Attachments"].([]any)
	if len(atts) != 1 {
		t.Fatalf("Attachments: got %d, want 1", len(atts))
	}
	att := atts[0].(map[string]any)
	if att["ContentType"] != "image/png" || att["Filename"] != "filename.png" {
		t.Errorf("attachment: got %v", att)
	}
	decoded, _ := base64.StdEncoding.DecodeString(att["Base64Content"].(string))
	if !reflect.DeepEqual(decoded, pngContent) {
		t.Error("attachment content mismatch")
	}

	inline := m["InlinedAttachments"].([]any)
	if len(inline) != 1 {
		t.Fatalf("InlinedAttachments: got %d, want 1", len(inline))
	}
	if id := inline[0].(map[string]any)["ContentID"]; id != "img1" {
		t.Errorf("ContentID: got %v, want %q", id, "img1")
	}
}

func TestV31_AllCustomHeaders(t *testing.T) {
	t.Parallel()

	msg := email.NewMessage("Test Subject", "Hello world!", "").
		AddTo("to@example.com", "To Name").
		SetFrom("from@example.com", "From Name")
	h := msg.Headers()
	h.Add("X-MJ-TemplateID", "azertyuiop")
	h.Add("X-MJ-TemplateLanguage", true)
	h.Add("X-MJ-TemplateErrorReporting", "air-traffic-control@mailjet.com")
	h.Add("X-MJ-TemplateErrorDeliver", "deliver")
	h.Add("X-Mailjet-Prio", 3)
	h.Add("X-Mailjet-Campaign", "azertyuiop")
	h.Add("X-Mailjet-DeduplicateCampaign", false)
	h.Add("X-Mailjet-TrackOpen", "account_default")
	h.Add("X-Mailjet-TrackClick", "account_default")
	h.Add("X-MJ-CustomID", "PassengerEticket1234")
	h.Add("X-MJ-EventPayLoad", "Eticket,1234,row,15,seat,B")
	h.Add("X-MJ-MonitoringCategory", "checkout")
	h.Add("X-MJ-Vars", map[string]any{"today": "monday"})
	h.Add("X-MyCustomHeader", "CustomHeader")

	m := firstV31(t, mustBuild(t, NewV31(), msg))

	want := map[string]any{
		"TemplateID":             "azertyuiop",
		"TemplateLanguage":       true,
		"TemplateErrorReporting": "air-traffic-control@mailjet.com",
		"TemplateErrorDeliver":   "deliver",
		"Priority":               float64(3),
		"CustomCampaign":         "azertyuiop",
		"DeduplicateCampaign":    false,
		"TrackOpens":             "account_default",
		"TrackClicks":            "account_default",
		"CustomID":               "PassengerEticket1234",
		"EventPayload":           "Eticket,1234,row,15,seat,B",
		"MonitoringCategory":     "checkout",
		"Variables":              map[string]any{"today": "monday"},
	}
	for field, value := range want {
		if !reflect.DeepEqual(m[field], value) {
			t.Errorf("%s: got %#v, want %#v", field, m[field], value)
		}
	}

	headers := m["Headers"].(map[string]any)
	if len(headers) != 1 || headers["X-MyCustomHeader"] != "CustomHeader" {
		t.Errorf("Headers: got %v, want only X-MyCustomHeader", headers)
	}
}

func TestV31_DoesNotMutateMessageHeaders(t *testing.T) {
	t.Parallel()

	msg := email.NewMessage("s", "b", "").AddTo("to@example.com", "")
	msg.Headers().Add("X-MJ-TemplateID", "tpl")

	mustBuild(t, NewV31(), msg)
	m := firstV31(t, mustBuild(t, NewV31(), msg))

	if m["TemplateID"] != "tpl" {
		t.Errorf("second build TemplateID: got %v, want %q", m["TemplateID"], "tpl")
	}
	if !msg.Headers().Has("X-MJ-TemplateID") {
		t.Error("message header should survive payload building")
	}
}

func TestV31_Batch(t *testing.T) {
	t.Parallel()

	var msgs []*email.Message
	for i := 0; i < 4; i++ {
		msgs = append(msgs, email.NewMessage("Test Subject", "<p>Foo bar</p>", email.ContentTypeHTML).
			AddTo("to@example.com", "To Name").
			SetFrom("from@example.com", "From Name"))
	}

	body, err := NewV31().Batch(msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj := toMap(t, body)
	entries := obj["Messages"].([]any)
	if len(entries) != 4 {
		t.Fatalf("Messages: got %d, want 4", len(entries))
	}
	for i, e := range entries {
		if e.(map[string]any)["Subject"] != "Test Subject" {
			t.Errorf("Messages[%d].Subject: got %v", i, e.(map[string]any)["Subject"])
		}
		if _, nested := e.(map[string]any)["Messages"]; nested {
			t.Errorf("Messages[%d] should not be nested", i)
		}
	}
}

func TestV31_SentCount(t *testing.T) {
	t.Parallel()

	body := []byte(`{"Messages":[
		{"Status":"success","To":[{"Email":"a@x.com"},{"Email":"b@x.com"}],"Cc":[{"Email":"c@x.com"}],"Bcc":[]},
		{"Status":"success","To":[{"Email":"d@x.com"}]}
	]}`)

	if got := NewV31().SentCount(body); got != 4 {
		t.Errorf("SentCount: got %d, want 4", got)
	}
	if got := NewV31().SentCount([]byte("not json")); got != 0 {
		t.Errorf("SentCount(malformed): got %d, want 0", got)
	}
}

func TestV31_InvalidVarsSentAsNull(t *testing.T) {
	t.Parallel()

	msg := email.NewMessage("Hi", "hello", email.ContentTypeText).
		AddTo("alice@x.com", "").
		SetFrom("bob@y.com", "")
	msg.Headers().Add("X-MJ-Vars", "{broken")
	msg.Headers().Add("X-MJ-TemplateID", "123")

	got := firstV31(t, mustBuild(t, NewV31(), msg))

	v, ok := got["Variables"]
	if !ok || v != nil {
		t.Errorf("Variables: got %#v (present=%v), want null", v, ok)
	}
	if got["TemplateID"] != "123" {
		t.Errorf("TemplateID: got %v, want %q", got["TemplateID"], "123")
	}
	if _, ok := got["Headers"]; ok {
		t.Errorf("Headers: got %v, want absent", got["Headers"])
	}
}

func mustBuild(t *testing.T, b Builder, msg *email.Message) any {
	t.Helper()
	body, err := b.Build(msg)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	return body
}
