package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"wedding-invitation/internal/handler"
	"wedding-invitation/internal/models"
	"wedding-invitation/internal/storage"
)

const timeLayout = "2006-01-02 15:04:05"

// console is the interactive admin menu
type console struct {
	storage       *storage.Storage
	sender        handler.Notifier
	publicBaseURL string
	in            *bufio.Scanner
	out           io.Writer
}

func (c *console) run(ctx context.Context) {
	for {
		fmt.Fprintln(c.out, "\nCommands:")
		fmt.Fprintln(c.out, "  1. Add guest")
		fmt.Fprintln(c.out, "  2. View all guests")
		fmt.Fprintln(c.out, "  3. View RSVPs by attendance")
		fmt.Fprintln(c.out, "  4. Send invitation")
		fmt.Fprintln(c.out, "  5. Show stats")
		fmt.Fprintln(c.out, "  6. Exit")
		fmt.Fprint(c.out, "\nEnter command (1-6): ")

		if !c.in.Scan() {
			return
		}

		switch strings.TrimSpace(c.in.Text()) {
		case "1":
			c.addGuest(ctx)
		case "2":
			c.viewAllGuests(ctx)
		case "3":
			c.viewRSVPsByAttendance(ctx)
		case "4":
			c.sendInvitation(ctx)
		case "5":
			c.showStats(ctx)
		case "6":
			fmt.Fprintln(c.out, "Exiting...")
			return
		default:
			fmt.Fprintln(c.out, "Invalid command. Please try again.")
		}
	}
}

func (c *console) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *console) addGuest(ctx context.Context) {
	name, ok := c.prompt("Enter guest name: ")
	if !ok {
		return
	}
	side, ok := c.prompt("Enter side (male/female, empty for female): ")
	if !ok {
		return
	}

	guest, _, err := c.storage.Guests.CreateGuest(ctx, name, models.Side(strings.ToLower(side)))
	if err != nil {
		fmt.Fprintf(c.out, "❌ Error adding guest: %v\n", err)
		return
	}
	inv := models.NewInvitation(c.publicBaseURL, guest)
	fmt.Fprintf(c.out, "✅ Guest %s added (%s)\n", guest.Name, guest.ID)
	fmt.Fprintf(c.out, "Invitation link: %s\n", inv.URL)
}

func (c *console) viewAllGuests(ctx context.Context) {
	guests, err := c.storage.Guests.ListGuests(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "❌ Error loading guests: %v\n", err)
		return
	}
	if len(guests) == 0 {
		fmt.Fprintln(c.out, "\nNo guests found.")
		return
	}

	fmt.Fprintf(c.out, "\n📋 All Guests (%d total):\n", len(guests))
	fmt.Fprintln(c.out, strings.Repeat("-", 60))
	for _, guest := range guests {
		fmt.Fprintf(c.out, "ID: %s\n", guest.ID)
		fmt.Fprintf(c.out, "Name: %s\n", guest.Name)
		fmt.Fprintf(c.out, "Side: %s\n", guest.Side.OrDefault())
		fmt.Fprintf(c.out, "Created: %s\n", guest.CreatedAt.Local().Format(timeLayout))
		fmt.Fprintln(c.out, strings.Repeat("-", 60))
	}
}

func (c *console) viewRSVPsByAttendance(ctx context.Context) {
	fmt.Fprintln(c.out, "\nSelect attendance:")
	fmt.Fprintln(c.out, "  1. Attending")
	fmt.Fprintln(c.out, "  2. Not attending")
	choice, ok := c.prompt("Enter choice (1-2): ")
	if !ok {
		return
	}

	var attendance models.Attendance
	switch choice {
	case "1":
		attendance = models.AttendanceAttending
	case "2":
		attendance = models.AttendanceNotAttending
	default:
		fmt.Fprintln(c.out, "Invalid choice.")
		return
	}

	rsvps, err := c.storage.RSVPs.ListRSVPs(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "❌ Error loading RSVPs: %v\n", err)
		return
	}

	matching := rsvps[:0]
	for _, r := range rsvps {
		if r.Attendance == attendance {
			matching = append(matching, r)
		}
	}
	if len(matching) == 0 {
		fmt.Fprintf(c.out, "\nNo RSVPs with attendance '%s'.\n", attendance)
		return
	}

	fmt.Fprintf(c.out, "\n📋 RSVPs with attendance '%s' (%d total):\n", attendance, len(matching))
	fmt.Fprintln(c.out, strings.Repeat("-", 60))
	for _, r := range matching {
		fmt.Fprintf(c.out, "Name: %s\n", r.FullName)
		if r.Message != "" {
			fmt.Fprintf(c.out, "Message: %s\n", r.Message)
		}
		fmt.Fprintf(c.out, "Submitted: %s\n", r.SubmittedAt.Local().Format(timeLayout))
		fmt.Fprintln(c.out, strings.Repeat("-", 60))
	}
}

func (c *console) sendInvitation(ctx context.Context) {
	id, ok := c.prompt("Enter guest id: ")
	if !ok {
		return
	}
	phoneNumber, ok := c.prompt("Enter phone number (e.g., 0812...): ")
	if !ok {
		return
	}

	guest, err := c.storage.Guests.GetGuest(ctx, id)
	if err != nil {
		fmt.Fprintf(c.out, "❌ Error loading guest: %v\n", err)
		return
	}
	inv := models.NewInvitation(c.publicBaseURL, guest)

	fmt.Fprintf(c.out, "\nSending invitation to %s (%s)...\n", guest.Name, phoneNumber)
	recipient, err := c.sender.SendInvitation(ctx, phoneNumber, inv)
	if errors.Is(err, handler.ErrDeliveryDisabled) {
		fmt.Fprintln(c.out, "WhatsApp is not enabled. Share this link instead:")
		fmt.Fprintln(c.out, inv.URL)
		return
	}
	if err != nil {
		fmt.Fprintf(c.out, "❌ Error sending invitation: %v\n", err)
		return
	}
	if _, err := c.storage.Invitations.Record(ctx, recipient, inv); err != nil {
		fmt.Fprintf(c.out, "⚠️  Invitation sent but not recorded: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "✅ Invitation sent successfully!")
}

func (c *console) showStats(ctx context.Context) {
	stats, err := c.storage.Stats(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "❌ Error loading stats: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "\n📊 Stats")
	fmt.Fprintf(c.out, "Total guests:  %d\n", stats.TotalGuests)
	fmt.Fprintf(c.out, "Total RSVPs:   %d\n", stats.TotalRSVPs)
	fmt.Fprintf(c.out, "Attending:     %d\n", stats.AttendingCount)
	fmt.Fprintf(c.out, "Not attending: %d\n", stats.NotAttendingCount)
}
