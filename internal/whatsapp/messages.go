package whatsapp

import (
	"fmt"
	"strings"

	"wedding-invitation/internal/models"
)

// Wedding holds the details quoted in outgoing messages
type Wedding struct {
	Date      string
	Location  string
	BrideName string
	GroomName string
}

// InvitationMessage is the text sent with a personal invitation link
func InvitationMessage(w Wedding, inv models.Invitation) string {
	return fmt.Sprintf(
		"🎉 *Wedding Invitation*\n\n"+
			"Dear %s,\n\n"+
			"You are cordially invited to celebrate the wedding of\n\n"+
			"*%s* & *%s*\n\n"+
			"📅 Date: %s\n"+
			"📍 Location: %s\n\n"+
			"Your invitation: %s\n\n"+
			"Reply with:\n✅ *YES* to accept\n❌ *NO* to decline",
		inv.GuestName, w.BrideName, w.GroomName, w.Date, w.Location, inv.URL,
	)
}

// AcceptedMessage confirms an attending reply
func AcceptedMessage(w Wedding) string {
	return fmt.Sprintf(
		"🎉 Wonderful! We're so excited to celebrate with you!\n\n"+
			"We've confirmed your attendance for the wedding of %s & %s on %s.\n\n"+
			"See you there! 💕",
		w.BrideName, w.GroomName, w.Date,
	)
}

// DeclinedMessage acknowledges a not-attending reply
func DeclinedMessage(w Wedding) string {
	return fmt.Sprintf(
		"Thank you for letting us know. We're sorry you won't be able to join us for the wedding of %s & %s.\n\n"+
			"We'll miss you! 💕",
		w.BrideName, w.GroomName,
	)
}

// RSVPNotification announces a new RSVP to the couple
func RSVPNotification(r models.RSVP) string {
	icon := "✅"
	if r.Attendance == models.AttendanceNotAttending {
		icon = "❌"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s New RSVP from *%s*: %s", icon, r.FullName, r.Attendance)
	if r.GuestID != "" {
		fmt.Fprintf(&b, "\nGuest: %s", r.GuestID)
	}
	if msg := strings.TrimSpace(r.Message); msg != "" {
		fmt.Fprintf(&b, "\nMessage: %s", msg)
	}
	return b.String()
}
