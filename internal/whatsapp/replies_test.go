package whatsapp

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"wedding-invitation/internal/blob"
	"wedding-invitation/internal/metrics"
	"wedding-invitation/internal/models"
	"wedding-invitation/internal/storage"
)

type sentMessage struct {
	phone, text string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, phone, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentMessage{phone, text})
	return phone, nil
}

type fakeRSVPNotifier struct {
	rsvps []models.RSVP
}

func (f *fakeRSVPNotifier) NotifyRSVP(_ context.Context, r models.RSVP) error {
	f.rsvps = append(f.rsvps, r)
	return nil
}

type replyEnv struct {
	handler  *ReplyHandler
	storage  *storage.Storage
	sender   *fakeSender
	notifier *fakeRSVPNotifier
	metrics  *metrics.Metrics
}

const invitedNumber = "6281234567890"

func newReplyEnv(t *testing.T) *replyEnv {
	t.Helper()

	st := storage.NewStorage(blob.NewMemoryStore(""), zerolog.Nop())
	inv := models.Invitation{GuestID: "guest-0001", GuestName: "Rina", URL: "https://wedding.example.com/?id=guest-0001"}
	if _, err := st.Invitations.Record(context.Background(), invitedNumber, inv); err != nil {
		t.Fatalf("Record: %v", err)
	}

	env := &replyEnv{
		storage:  st,
		sender:   &fakeSender{},
		notifier: &fakeRSVPNotifier{},
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	env.handler = NewReplyHandler(st.Invitations, st.RSVPs, env.sender, env.notifier, testWedding, env.metrics, zerolog.Nop())
	return env
}

func TestClassifyReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want models.Attendance
		ok   bool
	}{
		{"YES", models.AttendanceAttending, true},
		{"Yes, I will come!", models.AttendanceAttending, true},
		{"✅", models.AttendanceAttending, true},
		{"Iya, insya Allah hadir", models.AttendanceAttending, true},
		{"no", models.AttendanceNotAttending, true},
		{"Sorry, not coming", models.AttendanceNotAttending, true},
		{"I can't make it", models.AttendanceNotAttending, true},
		{"Maaf, tidak bisa hadir", models.AttendanceNotAttending, true},
		{"❌", models.AttendanceNotAttending, true},
		{"know", "", false},
		{"Hello", "", false},
		{"   ", "", false},
	}
	for _, tt := range tests {
		got, ok := ClassifyReply(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ClassifyReply(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestHandleReplyRecordsRSVP(t *testing.T) {
	t.Parallel()
	env := newReplyEnv(t)
	ctx := context.Background()

	stored, err := env.handler.HandleReply(ctx, "+"+invitedNumber, "Tidak bisa datang, maaf")
	if err != nil {
		t.Fatalf("HandleReply: %v", err)
	}
	if !stored {
		t.Fatal("reply was not stored")
	}

	rsvps, err := env.storage.RSVPs.ListRSVPs(ctx)
	if err != nil {
		t.Fatalf("ListRSVPs: %v", err)
	}
	if len(rsvps) != 1 {
		t.Fatalf("got %d rsvps, want 1", len(rsvps))
	}
	r := rsvps[0]
	if r.FullName != "Rina" || r.GuestID != "guest-0001" || r.Attendance != models.AttendanceNotAttending {
		t.Fatalf("rsvp = %+v", r.RSVP)
	}
	if r.Message != "Tidak bisa datang, maaf" {
		t.Fatalf("Message = %q", r.Message)
	}

	if len(env.sender.sent) != 1 || env.sender.sent[0].phone != invitedNumber || env.sender.sent[0].text != DeclinedMessage(testWedding) {
		t.Fatalf("sent = %+v", env.sender.sent)
	}
	if len(env.notifier.rsvps) != 1 {
		t.Fatalf("notifications = %d, want 1", len(env.notifier.rsvps))
	}
	if got := testutil.ToFloat64(env.metrics.RSVPs.WithLabelValues("not-attending", ChannelWhatsApp)); got != 1 {
		t.Fatalf("rsvp counter = %v, want 1", got)
	}
}

func TestHandleReplyIgnoresUnknownNumbers(t *testing.T) {
	t.Parallel()
	env := newReplyEnv(t)

	stored, err := env.handler.HandleReply(context.Background(), "6289999999999", "yes")
	if err != nil || stored {
		t.Fatalf("HandleReply = %v, %v; want false, nil", stored, err)
	}
	if len(env.sender.sent) != 0 {
		t.Fatalf("replied to an unknown number")
	}
}

func TestHandleReplyIgnoresUnclearText(t *testing.T) {
	t.Parallel()
	env := newReplyEnv(t)
	ctx := context.Background()

	stored, err := env.handler.HandleReply(ctx, invitedNumber, "What time does it start?")
	if err != nil || stored {
		t.Fatalf("HandleReply = %v, %v; want false, nil", stored, err)
	}
	rsvps, _ := env.storage.RSVPs.ListRSVPs(ctx)
	if len(rsvps) != 0 {
		t.Fatalf("got %d rsvps, want 0", len(rsvps))
	}
}

func TestHandleReplyConfirmationFailure(t *testing.T) {
	t.Parallel()
	env := newReplyEnv(t)
	env.sender.err = errors.New("offline")

	stored, err := env.handler.HandleReply(context.Background(), invitedNumber, "yes")
	if !stored {
		t.Fatal("RSVP must be stored even when the confirmation fails")
	}
	if err == nil {
		t.Fatal("expected the confirmation error")
	}
}

func TestHandleMessage(t *testing.T) {
	t.Parallel()
	env := newReplyEnv(t)

	text := "yes"
	msg := &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Sender: types.NewJID(invitedNumber, types.DefaultUserServer),
			},
		},
		Message: &waE2E.Message{
			ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: &text},
		},
	}
	if err := env.handler.HandleMessage(msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if len(env.sender.sent) != 1 || env.sender.sent[0].text != AcceptedMessage(testWedding) {
		t.Fatalf("sent = %+v", env.sender.sent)
	}

	if err := env.handler.HandleMessage(&events.Message{}); err != nil {
		t.Fatalf("HandleMessage without content: %v", err)
	}
}
