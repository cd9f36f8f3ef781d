package models

import (
	"net/url"
	"strings"
	"time"
)

// Side tells which family a guest (or an event) belongs to
type Side string

const (
	SideMale   Side = "male"
	SideFemale Side = "female"
)

// Valid reports whether s is one of the known sides
func (s Side) Valid() bool {
	return s == SideMale || s == SideFemale
}

// OrDefault returns s, or female when s is empty
func (s Side) OrDefault() Side {
	if s == "" {
		return SideFemale
	}
	return s
}

// Guest represents an invited guest as stored in guest-NNNN.json
type Guest struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Side      Side      `json:"side,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GuestEntry is a listed guest with the blob it was read from
type GuestEntry struct {
	Guest
	BlobURL    string    `json:"blobUrl"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Invitation is the personalised link a guest receives
type Invitation struct {
	GuestID   string `json:"guestId"`
	GuestName string `json:"guestName"`
	Side      Side   `json:"side,omitempty"`
	URL       string `json:"url"`
}

// NewInvitation builds the invitation link: <base>/?id=..&name=..&side=..
func NewInvitation(baseURL string, g Guest) Invitation {
	q := url.Values{}
	q.Set("id", g.ID)
	q.Set("name", g.Name)
	if g.Side != "" {
		q.Set("side", string(g.Side))
	}

	return Invitation{
		GuestID:   g.ID,
		GuestName: g.Name,
		Side:      g.Side,
		URL:       strings.TrimRight(baseURL, "/") + "/?" + q.Encode(),
	}
}
