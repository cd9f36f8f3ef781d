package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"wedding-invitation/internal/blob"
	"wedding-invitation/internal/metrics"
	"wedding-invitation/internal/models"
	"wedding-invitation/internal/storage"
)

const publicBaseURL = "https://wedding.example.com"

type fakeNotifier struct {
	mu        sync.Mutex
	rsvps     []models.RSVP
	sent      []models.Invitation
	notifyErr error
	sendErr   error
}

func (f *fakeNotifier) NotifyRSVP(_ context.Context, r models.RSVP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rsvps = append(f.rsvps, r)
	return f.notifyErr
}

func (f *fakeNotifier) SendInvitation(_ context.Context, phone string, inv models.Invitation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, inv)
	return strings.TrimPrefix(phone, "+"), nil
}

type testEnv struct {
	app      *fiber.App
	storage  *storage.Storage
	notifier *fakeNotifier
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := storage.NewStorage(blob.NewMemoryStore(""), zerolog.Nop())
	n := &fakeNotifier{}
	m := metrics.New(prometheus.NewRegistry())
	h := New(st, n, Config{PublicBaseURL: publicBaseURL}, m, zerolog.Nop())

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zerolog.Nop())})
	h.Register(app.Group("/api"))

	return &testEnv{app: app, storage: st, notifier: n, metrics: m}
}

// call sends a request and decodes the JSON response into a generic map
func (e *testEnv) call(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")

	res, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return res.StatusCode, out
}

func TestGuestLifecycle(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	status, body := e.call(t, http.MethodPost, "/api/guests", `{"name":"Rina Putri"}`)
	if status != http.StatusOK {
		t.Fatalf("create: status %d, body %v", status, body)
	}
	if body["message"] != "Guest created successfully" {
		t.Errorf("message = %v", body["message"])
	}
	data := body["data"].(map[string]any)
	guest := data["guest"].(map[string]any)
	if guest["id"] != "guest-0001" || guest["side"] != "female" {
		t.Fatalf("guest = %v", guest)
	}
	if data["pathname"] != "guest-0001.json" {
		t.Errorf("pathname = %v", data["pathname"])
	}

	status, body = e.call(t, http.MethodPut, "/api/guests/guest-0001", `{"name":"Rina Putri Sari","side":"male"}`)
	if status != http.StatusOK {
		t.Fatalf("update: status %d, body %v", status, body)
	}
	guest = body["data"].(map[string]any)["guest"].(map[string]any)
	if guest["name"] != "Rina Putri Sari" || guest["side"] != "male" {
		t.Fatalf("updated guest = %v", guest)
	}

	status, body = e.call(t, http.MethodGet, "/api/guests", "")
	if status != http.StatusOK {
		t.Fatalf("list: status %d", status)
	}
	if body["count"] != float64(1) {
		t.Fatalf("count = %v", body["count"])
	}
	listed := body["guests"].([]any)[0].(map[string]any)
	if listed["name"] != "Rina Putri Sari" || listed["blobUrl"] == "" {
		t.Fatalf("listed = %v", listed)
	}

	status, body = e.call(t, http.MethodGet, "/api/guests/0001", "")
	if status != http.StatusOK || body["guest"].(map[string]any)["id"] != "guest-0001" {
		t.Fatalf("get: status %d, body %v", status, body)
	}

	status, body = e.call(t, http.MethodDelete, "/api/guests/guest-0001", "")
	if status != http.StatusOK || body["message"] != "Guest deleted successfully" {
		t.Fatalf("delete: status %d, body %v", status, body)
	}

	status, body = e.call(t, http.MethodDelete, "/api/guests/guest-0001", "")
	if status != http.StatusNotFound {
		t.Fatalf("second delete: status %d", status)
	}
	if body["success"] != false || body["error"] != "Guest not found" {
		t.Fatalf("second delete body = %v", body)
	}
}

func TestGuestValidationErrors(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	tests := []struct {
		name, method, path, body string
		wantStatus               int
		wantError                string
	}{
		{"missing name", http.MethodPost, "/api/guests", `{}`, http.StatusBadRequest, "Guest name is required"},
		{"blank name", http.MethodPost, "/api/guests", `{"name":"  "}`, http.StatusBadRequest, "Guest name is required"},
		{"bad side", http.MethodPost, "/api/guests", `{"name":"A","side":"both"}`, http.StatusBadRequest, "Side must be either male or female"},
		{"malformed json", http.MethodPost, "/api/guests", `{"name":`, http.StatusBadRequest, "Invalid JSON body"},
		{"update unknown", http.MethodPut, "/api/guests/guest-0404", `{"name":"A"}`, http.StatusNotFound, "Guest not found"},
		{"update without name", http.MethodPut, "/api/guests/guest-0001", `{"side":"male"}`, http.StatusBadRequest, "Guest name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.call(t, tt.method, tt.path, tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %v)", status, tt.wantStatus, body)
			}
			if body["success"] != false || body["error"] != tt.wantError {
				t.Fatalf("body = %v, want error %q", body, tt.wantError)
			}
		})
	}
}

func TestRSVPEndpoints(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	status, body := e.call(t, http.MethodPost, "/api/rsvp", `{"fullName":"Jane Doe","attendance":"attending","guestId":"guest-0001"}`)
	if status != http.StatusOK {
		t.Fatalf("create: status %d, body %v", status, body)
	}
	if body["message"] != "RSVP submitted successfully" {
		t.Errorf("message = %v", body["message"])
	}
	pathname := body["data"].(map[string]any)["pathname"].(string)
	if !strings.HasPrefix(pathname, "rsvp-jane-doe-") {
		t.Errorf("pathname = %q", pathname)
	}

	if got := testutil.ToFloat64(e.metrics.RSVPs.WithLabelValues("attending", ChannelWeb)); got != 1 {
		t.Errorf("rsvp counter = %v, want 1", got)
	}
	if len(e.notifier.rsvps) != 1 || e.notifier.rsvps[0].FullName != "Jane Doe" {
		t.Errorf("notifications = %+v", e.notifier.rsvps)
	}

	status, body = e.call(t, http.MethodGet, "/api/rsvp/list", "")
	if status != http.StatusOK || body["count"] != float64(1) {
		t.Fatalf("list: status %d, body %v", status, body)
	}
	listed := body["rsvps"].([]any)[0].(map[string]any)
	if listed["message"] != "" || listed["guestId"] != "guest-0001" {
		t.Fatalf("listed = %v", listed)
	}
	id := listed["id"].(string)

	status, body = e.call(t, http.MethodDelete, "/api/rsvp/"+id, "")
	if status != http.StatusOK || body["message"] != "RSVP deleted successfully" {
		t.Fatalf("delete: status %d, body %v", status, body)
	}

	status, body = e.call(t, http.MethodDelete, "/api/rsvp/"+id, "")
	if status != http.StatusNotFound || body["error"] != "RSVP not found" {
		t.Fatalf("second delete: status %d, body %v", status, body)
	}
}

func TestRSVPValidation(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	tests := []struct {
		name, body string
		wantError  string
	}{
		{"missing name", `{"attendance":"attending"}`, "Full name and attendance status are required"},
		{"missing attendance", `{"fullName":"Jane"}`, "Full name and attendance status are required"},
		{"unknown attendance", `{"fullName":"Jane","attendance":"maybe"}`, `Attendance must be "attending" or "not-attending"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.call(t, http.MethodPost, "/api/rsvp", tt.body)
			if status != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", status)
			}
			if body["error"] != tt.wantError {
				t.Fatalf("error = %v, want %q", body["error"], tt.wantError)
			}
		})
	}
}

func TestRSVPSurvivesNotificationFailure(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	e.notifier.notifyErr = errors.New("whatsapp down")

	status, body := e.call(t, http.MethodPost, "/api/rsvp", `{"fullName":"Jane","attendance":"not-attending","message":"Maaf"}`)
	if status != http.StatusOK {
		t.Fatalf("status %d, body %v", status, body)
	}

	rsvps, err := e.storage.RSVPs.ListRSVPs(context.Background())
	if err != nil {
		t.Fatalf("ListRSVPs: %v", err)
	}
	if len(rsvps) != 1 || rsvps[0].Message != "Maaf" {
		t.Fatalf("rsvps = %+v", rsvps)
	}
}

func TestConfigEndpoints(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	status, body := e.call(t, http.MethodGet, "/api/config", "")
	if status != http.StatusOK {
		t.Fatalf("get default: status %d", status)
	}
	if events := body["events"].([]any); len(events) != 3 {
		t.Fatalf("default events = %d, want 3", len(events))
	}

	status, body = e.call(t, http.MethodGet, "/api/config?side=male", "")
	if status != http.StatusOK {
		t.Fatalf("get male: status %d", status)
	}
	if events := body["events"].([]any); len(events) != 1 {
		t.Fatalf("male events = %d, want 1", len(events))
	}

	status, _ = e.call(t, http.MethodGet, "/api/config?side=both", "")
	if status != http.StatusBadRequest {
		t.Fatalf("bad side: status %d, want 400", status)
	}

	status, body = e.call(t, http.MethodPost, "/api/config", `{"events":[{"id":"akad","title":"Akad Nikah","time":"08.00 WIB"}]}`)
	if status != http.StatusOK || body["message"] != "Configuration updated successfully" {
		t.Fatalf("save: status %d, body %v", status, body)
	}

	status, body = e.call(t, http.MethodGet, "/api/config", "")
	if status != http.StatusOK {
		t.Fatalf("get saved: status %d", status)
	}
	events := body["events"].([]any)
	if len(events) != 1 || events[0].(map[string]any)["time"] != "08.00 WIB" {
		t.Fatalf("saved events = %v", events)
	}

	status, _ = e.call(t, http.MethodPost, "/api/config", `not json`)
	if status != http.StatusBadRequest {
		t.Fatalf("malformed config: status %d, want 400", status)
	}
}

func TestConfigKeepsUnknownKeys(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	doc := `{"theme":"sage","events":[` +
		`{"id":"akad","time":7,"dressCode":"white","side":"female"},` +
		`{"id":"doa","livestream":{"url":"https://yt.example.com/x"}}]}`
	status, body := e.call(t, http.MethodPost, "/api/config", doc)
	if status != http.StatusOK {
		t.Fatalf("save: status %d, body %v", status, body)
	}
	if data := body["data"].(map[string]any); data["theme"] != "sage" {
		t.Fatalf("echoed data = %v", data)
	}

	status, body = e.call(t, http.MethodGet, "/api/config", "")
	if status != http.StatusOK {
		t.Fatalf("get: status %d", status)
	}
	if body["theme"] != "sage" {
		t.Fatalf("top-level key dropped: %v", body)
	}
	events := body["events"].([]any)
	akad := events[0].(map[string]any)
	if akad["dressCode"] != "white" || akad["time"] != float64(7) {
		t.Fatalf("event keys dropped: %v", akad)
	}

	status, body = e.call(t, http.MethodGet, "/api/config?side=male", "")
	if status != http.StatusOK {
		t.Fatalf("get male: status %d", status)
	}
	events = body["events"].([]any)
	if len(events) != 1 || body["theme"] != "sage" {
		t.Fatalf("male view = %v", body)
	}
	if _, ok := events[0].(map[string]any)["livestream"]; !ok {
		t.Fatalf("filtered event lost its keys: %v", events[0])
	}
}

func TestExpiredDeadlineReturnsGatewayTimeout(t *testing.T) {
	t.Parallel()

	st := storage.NewStorage(blob.NewMemoryStore(""), zerolog.Nop())
	h := New(st, &fakeNotifier{}, Config{PublicBaseURL: publicBaseURL}, nil, zerolog.Nop())
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zerolog.Nop())})
	h.Register(app.Group("/api", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithDeadline(c.UserContext(), time.Now().Add(-time.Second))
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}))
	e := &testEnv{app: app, storage: st}

	for _, path := range []string{"/api/guests", "/api/rsvp/list", "/api/config", "/api/stats"} {
		status, body := e.call(t, http.MethodGet, path, "")
		if status != http.StatusGatewayTimeout || body["success"] != false {
			t.Errorf("GET %s: status %d, body %v", path, status, body)
		}
	}
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	e.call(t, http.MethodPost, "/api/guests", `{"name":"Ani"}`)
	e.call(t, http.MethodPost, "/api/guests", `{"name":"Budi","side":"male"}`)
	e.call(t, http.MethodPost, "/api/rsvp", `{"fullName":"Ani","attendance":"attending"}`)

	status, body := e.call(t, http.MethodGet, "/api/stats", "")
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	data := body["data"].(map[string]any)
	want := map[string]float64{"totalGuests": 2, "totalRsvps": 1, "attendingCount": 1, "notAttendingCount": 0}
	for k, v := range want {
		if data[k] != v {
			t.Errorf("%s = %v, want %v", k, data[k], v)
		}
	}
}

func TestInvitationEndpoints(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	e.call(t, http.MethodPost, "/api/guests", `{"name":"Rina & Co","side":"male"}`)

	status, body := e.call(t, http.MethodGet, "/api/guests/guest-0001/invitation", "")
	if status != http.StatusOK {
		t.Fatalf("invitation: status %d", status)
	}
	inv := body["data"].(map[string]any)
	wantURL := publicBaseURL + "/?id=guest-0001&name=Rina+%26+Co&side=male"
	if inv["url"] != wantURL {
		t.Fatalf("url = %v, want %s", inv["url"], wantURL)
	}

	status, body = e.call(t, http.MethodPost, "/api/guests/guest-0001/invitation/send", `{"phoneNumber":"+6281234567890"}`)
	if status != http.StatusOK {
		t.Fatalf("send: status %d, body %v", status, body)
	}
	rec, err := e.storage.Invitations.Lookup(context.Background(), "6281234567890")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.GuestID != "guest-0001" || rec.URL != wantURL {
		t.Fatalf("recorded %+v", rec)
	}

	status, body = e.call(t, http.MethodPost, "/api/guests/guest-0001/invitation/send", `{}`)
	if status != http.StatusBadRequest || body["error"] != "Phone number is required" {
		t.Fatalf("missing phone: status %d, body %v", status, body)
	}

	status, _ = e.call(t, http.MethodGet, "/api/guests/guest-0404/invitation", "")
	if status != http.StatusNotFound {
		t.Fatalf("unknown guest: status %d", status)
	}
}

func TestSendInvitationFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"disabled", ErrDeliveryDisabled, http.StatusServiceUnavailable},
		{"send failed", errors.New("not on whatsapp"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.notifier.sendErr = tt.err
			e.call(t, http.MethodPost, "/api/guests", `{"name":"Ani"}`)

			status, body := e.call(t, http.MethodPost, "/api/guests/guest-0001/invitation/send", `{"phoneNumber":"0812"}`)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			if body["success"] != false {
				t.Fatalf("body = %v", body)
			}
		})
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	status, body := e.call(t, http.MethodGet, "/api/nope", "")
	if status != http.StatusNotFound || body["success"] != false {
		t.Fatalf("status %d, body %v", status, body)
	}
}

func TestNoopNotifier(t *testing.T) {
	t.Parallel()

	var n NoopNotifier
	if err := n.NotifyRSVP(context.Background(), models.RSVP{}); err != nil {
		t.Fatalf("NotifyRSVP: %v", err)
	}
	if _, err := n.SendInvitation(context.Background(), "1", models.Invitation{}); !errors.Is(err, ErrDeliveryDisabled) {
		t.Fatalf("SendInvitation: err = %v", err)
	}
}
