package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types/events"

	"wedding-invitation/internal/blob"
	"wedding-invitation/internal/metrics"
	"wedding-invitation/internal/models"
	"wedding-invitation/internal/storage"
)

// ChannelWhatsApp labels RSVPs that arrived as WhatsApp replies.
const ChannelWhatsApp = "whatsapp"

const replyTimeout = 30 * time.Second

type InvitationLookup interface {
	Lookup(ctx context.Context, phoneNumber string) (storage.SentInvitation, error)
}

type RSVPCreator interface {
	CreateRSVP(ctx context.Context, in storage.NewRSVP) (models.RSVP, blob.Blob, error)
}

type MessageSender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) (string, error)
}

type RSVPNotifier interface {
	NotifyRSVP(ctx context.Context, r models.RSVP) error
}

// ReplyHandler turns yes/no replies from invited numbers into RSVPs
type ReplyHandler struct {
	invitations InvitationLookup
	rsvps       RSVPCreator
	sender      MessageSender
	notifier    RSVPNotifier
	wedding     Wedding
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewReplyHandler creates a reply handler. notifier and m may be nil.
func NewReplyHandler(invitations InvitationLookup, rsvps RSVPCreator, sender MessageSender, notifier RSVPNotifier, wedding Wedding, m *metrics.Metrics, log zerolog.Logger) *ReplyHandler {
	return &ReplyHandler{
		invitations: invitations,
		rsvps:       rsvps,
		sender:      sender,
		notifier:    notifier,
		wedding:     wedding,
		metrics:     m,
		log:         log.With().Str("component", "whatsapp-replies").Logger(),
	}
}

// HandleMessage processes incoming WhatsApp messages for RSVP responses
func (h *ReplyHandler) HandleMessage(msg *events.Message) error {
	if msg.Message == nil {
		return nil
	}

	text := msg.Message.GetConversation()
	if text == "" {
		text = msg.Message.GetExtendedTextMessage().GetText()
	}
	if text == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	_, err := h.HandleReply(ctx, msg.Info.Sender.User, text)
	return err
}

// HandleReply records an RSVP when text is a clear answer from a number that
// received an invitation. It reports whether an RSVP was stored.
func (h *ReplyHandler) HandleReply(ctx context.Context, phoneNumber, text string) (bool, error) {
	phoneNumber = strings.TrimPrefix(strings.TrimSpace(phoneNumber), "+")

	inv, err := h.invitations.Lookup(ctx, phoneNumber)
	if errors.Is(err, storage.ErrNotFound) {
		// not one of ours
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up invitation: %w", err)
	}

	attendance, ok := ClassifyReply(text)
	if !ok {
		return false, nil
	}

	rsvp, _, err := h.rsvps.CreateRSVP(ctx, storage.NewRSVP{
		FullName:   inv.GuestName,
		Attendance: attendance,
		Message:    strings.TrimSpace(text),
		GuestID:    inv.GuestID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to save RSVP: %w", err)
	}

	if h.metrics != nil {
		h.metrics.RSVPs.WithLabelValues(string(attendance), ChannelWhatsApp).Inc()
	}
	h.log.Info().
		Str("guest_id", inv.GuestID).
		Str("attendance", string(attendance)).
		Msg("RSVP received over WhatsApp")

	if h.notifier != nil {
		if err := h.notifier.NotifyRSVP(ctx, rsvp); err != nil {
			h.log.Warn().Err(err).Msg("Failed to send RSVP notification")
		}
	}

	reply := AcceptedMessage(h.wedding)
	if attendance == models.AttendanceNotAttending {
		reply = DeclinedMessage(h.wedding)
	}
	if _, err := h.sender.SendMessage(ctx, phoneNumber, reply); err != nil {
		return true, fmt.Errorf("failed to send confirmation: %w", err)
	}
	return true, nil
}

var (
	declinePhrases = []string{"not coming", "can't come", "cannot come", "won't come", "can't make it", "tidak hadir", "tidak bisa", "berhalangan", "❌"}
	declineWords   = []string{"no", "nope", "decline", "declining", "tidak", "gak", "nggak", "enggak"}
	acceptPhrases  = []string{"will come", "will be there", "insya allah hadir", "✅"}
	acceptWords    = []string{"yes", "yep", "yeah", "accept", "accepting", "attending", "coming", "ya", "iya", "hadir", "bisa"}
)

// ClassifyReply maps a free-text reply to an attendance answer. Declines are
// checked first so that "not coming" is not read as "coming".
func ClassifyReply(text string) (models.Attendance, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", false
	}
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	})

	switch {
	case containsAny(text, declinePhrases...), hasWord(words, declineWords...):
		return models.AttendanceNotAttending, true
	case containsAny(text, acceptPhrases...), hasWord(words, acceptWords...):
		return models.AttendanceAttending, true
	default:
		return "", false
	}
}

// containsAny checks if the text contains any of the given keywords
func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func hasWord(words []string, keywords ...string) bool {
	for _, w := range words {
		for _, k := range keywords {
			if w == k {
				return true
			}
		}
	}
	return false
}
