package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wedding-invitation/internal/blob"
	"wedding-invitation/internal/models"
)

const invitationPrefix = "wa-invite-"

// SentInvitation records which guest an invitation was sent to over WhatsApp,
// so replies from that number can be attributed.
type SentInvitation struct {
	PhoneNumber string      `json:"phoneNumber"`
	GuestID     string      `json:"guestId"`
	GuestName   string      `json:"guestName"`
	Side        models.Side `json:"side,omitempty"`
	URL         string      `json:"url"`
	SentAt      time.Time   `json:"sentAt"`
}

// InvitationLedger keeps one blob per phone number; resending overwrites.
type InvitationLedger struct {
	store blob.Store
	log   zerolog.Logger
	opts  options
}

// NewInvitationLedger creates a ledger on top of store
func NewInvitationLedger(store blob.Store, log zerolog.Logger, opts ...Option) *InvitationLedger {
	return &InvitationLedger{
		store: store,
		log:   log.With().Str("repository", "invitations").Logger(),
		opts:  newOptions(opts),
	}
}

func invitationKey(phone string) string {
	return invitationPrefix + phone + ".json"
}

// Record stores who was invited on phoneNumber
func (l *InvitationLedger) Record(ctx context.Context, phoneNumber string, inv models.Invitation) (SentInvitation, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return SentInvitation{}, ValidationError{Field: "phoneNumber", Msg: "Phone number is required"}
	}

	rec := SentInvitation{
		PhoneNumber: phoneNumber,
		GuestID:     inv.GuestID,
		GuestName:   inv.GuestName,
		Side:        inv.Side,
		URL:         inv.URL,
		SentAt:      l.opts.stamp(),
	}

	data, err := encode(rec)
	if err != nil {
		return SentInvitation{}, StoreError{Op: "encode invitation", Err: err}
	}
	if _, err := l.store.Put(ctx, invitationKey(phoneNumber), data); err != nil {
		return SentInvitation{}, StoreError{Op: "save invitation", Err: err}
	}
	return rec, nil
}

// Lookup finds the invitation sent to phoneNumber
func (l *InvitationLedger) Lookup(ctx context.Context, phoneNumber string) (SentInvitation, error) {
	blobs, err := l.store.List(ctx, invitationKey(phoneNumber))
	if err != nil {
		return SentInvitation{}, StoreError{Op: "look up invitation", Err: err}
	}
	if len(blobs) == 0 {
		return SentInvitation{}, NotFoundError{Resource: "invitation", ID: phoneNumber}
	}

	rec, err := fetchJSON[SentInvitation](ctx, l.store, blobs[0].URL)
	if errors.Is(err, blob.ErrNotFound) {
		return SentInvitation{}, NotFoundError{Resource: "invitation", ID: phoneNumber}
	}
	if err != nil {
		return SentInvitation{}, StoreError{Op: "fetch invitation", Err: err}
	}
	return rec, nil
}
