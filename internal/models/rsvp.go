package models

import "time"

// Attendance represents the answer given on the RSVP form
type Attendance string

const (
	AttendanceAttending    Attendance = "attending"
	AttendanceNotAttending Attendance = "not-attending"
)

// Valid reports whether a is one of the accepted answers
func (a Attendance) Valid() bool {
	return a == AttendanceAttending || a == AttendanceNotAttending
}

// RSVP is the stored payload of one form submission. The id is not part of
// the payload; it is derived from the blob filename when listing.
type RSVP struct {
	FullName         string     `json:"fullName"`
	Attendance       Attendance `json:"attendance"`
	Message          string     `json:"message"`
	SubmittedAt      time.Time  `json:"submittedAt"`
	GuestID          string     `json:"guestId,omitempty"`
	GuestNameFromURL string     `json:"guestNameFromUrl,omitempty"`
}

// RSVPEntry is a listed RSVP with its derived id and source blob
type RSVPEntry struct {
	RSVP
	ID         string    `json:"id"`
	BlobURL    string    `json:"blobUrl"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Stats summarises guests and responses for the admin dashboard
type Stats struct {
	TotalGuests       int `json:"totalGuests"`
	TotalRSVPs        int `json:"totalRsvps"`
	AttendingCount    int `json:"attendingCount"`
	NotAttendingCount int `json:"notAttendingCount"`
}

// Summarize counts guests and RSVP answers
func Summarize(guests []GuestEntry, rsvps []RSVPEntry) Stats {
	s := Stats{
		TotalGuests: len(guests),
		TotalRSVPs:  len(rsvps),
	}
	for _, r := range rsvps {
		switch r.Attendance {
		case AttendanceAttending:
			s.AttendingCount++
		case AttendanceNotAttending:
			s.NotAttendingCount++
		}
	}
	return s
}
