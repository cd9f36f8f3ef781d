package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"

	"github.com/rs/zerolog"

	"wedding-invitation/internal/blob"
	"wedding-invitation/internal/models"
)

const rsvpPrefix = "rsvp-"

// NewRSVP is a form submission before it is stored
type NewRSVP struct {
	FullName         string
	Attendance       models.Attendance
	Message          string
	GuestID          string
	GuestNameFromURL string
}

// RSVPRepository stores one blob per submission. Submissions are never updated.
type RSVPRepository struct {
	store blob.Store
	log   zerolog.Logger
	opts  options
}

// NewRSVPRepository creates an RSVP repository on top of store
func NewRSVPRepository(store blob.Store, log zerolog.Logger, opts ...Option) *RSVPRepository {
	return &RSVPRepository{
		store: store,
		log:   log.With().Str("repository", "rsvps").Logger(),
		opts:  newOptions(opts),
	}
}

// ListRSVPs returns every readable submission, most recent first.
func (r *RSVPRepository) ListRSVPs(ctx context.Context) ([]models.RSVPEntry, error) {
	blobs, err := r.store.List(ctx, rsvpPrefix)
	if err != nil {
		return nil, StoreError{Op: "list rsvps", Err: err}
	}

	items, err := fetchAll[models.RSVP](ctx, r.store, blobs, r.opts, "rsvps", r.log)
	if err != nil {
		return nil, StoreError{Op: "fetch rsvps", Err: err}
	}

	rsvps := make([]models.RSVPEntry, 0, len(items))
	for _, it := range items {
		rsvps = append(rsvps, models.RSVPEntry{
			RSVP:       it.value,
			ID:         RSVPIDFromPathname(it.blob.Pathname),
			BlobURL:    it.blob.URL,
			UploadedAt: it.blob.UploadedAt,
		})
	}
	slices.SortStableFunc(rsvps, func(a, b models.RSVPEntry) int {
		return b.SubmittedAt.Compare(a.SubmittedAt)
	})
	return rsvps, nil
}

// CreateRSVP stores a submission as rsvp-<slug>-<epochMs>.json.
//
// Two submissions with the same slug in the same millisecond share a filename
// and the later one wins.
func (r *RSVPRepository) CreateRSVP(ctx context.Context, in NewRSVP) (models.RSVP, blob.Blob, error) {
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" || in.Attendance == "" {
		return models.RSVP{}, blob.Blob{}, ValidationError{Msg: "Full name and attendance status are required"}
	}
	if !in.Attendance.Valid() {
		return models.RSVP{}, blob.Blob{}, ValidationError{
			Field: "attendance",
			Msg:   fmt.Sprintf("Attendance must be %q or %q", models.AttendanceAttending, models.AttendanceNotAttending),
		}
	}

	now := r.opts.stamp()
	rsvp := models.RSVP{
		FullName:         fullName,
		Attendance:       in.Attendance,
		Message:          in.Message,
		SubmittedAt:      now,
		GuestID:          in.GuestID,
		GuestNameFromURL: in.GuestNameFromURL,
	}

	data, err := encode(rsvp)
	if err != nil {
		return models.RSVP{}, blob.Blob{}, StoreError{Op: "encode rsvp", Err: err}
	}

	filename := fmt.Sprintf("%s%s-%d.json", rsvpPrefix, Slugify(fullName), now.UnixMilli())
	b, err := r.store.Put(ctx, filename, data)
	if err != nil {
		return models.RSVP{}, blob.Blob{}, StoreError{Op: "save rsvp", Err: err}
	}

	r.log.Info().
		Str("pathname", b.Pathname).
		Str("attendance", string(rsvp.Attendance)).
		Msg("RSVP saved")
	return rsvp, b, nil
}

// DeleteRSVP removes the first submission whose pathname contains id.
//
// Matching is by substring, so an id that is part of another filename can
// select the wrong record. External callers may rely on partial ids, so the
// match is kept loose.
func (r *RSVPRepository) DeleteRSVP(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ValidationError{Field: "id", Msg: "RSVP id is required"}
	}

	blobs, err := r.store.List(ctx, rsvpPrefix)
	if err != nil {
		return StoreError{Op: "list rsvps", Err: err}
	}

	idx := slices.IndexFunc(blobs, func(b blob.Blob) bool {
		return strings.Contains(b.Pathname, id)
	})
	if idx < 0 {
		return NotFoundError{Resource: "rsvp", ID: id}
	}

	if err := r.store.Delete(ctx, blobs[idx].URL); err != nil {
		return StoreError{Op: "delete rsvp", Err: err}
	}

	r.log.Info().Str("pathname", blobs[idx].Pathname).Msg("RSVP deleted")
	return nil
}

// Slugify lower-cases s and replaces every character that is not an ASCII
// letter or digit with '-'. Characters outside the Basic Multilingual Plane
// become two dashes, one per UTF-16 code unit, which keeps ids identical to
// the ones earlier deployments wrote for the same name.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteString(strings.Repeat("-", max(utf16.RuneLen(r), 1)))
		}
	}
	return b.String()
}

// RSVPIDFromPathname strips the first "rsvp-" and the first ".json".
func RSVPIDFromPathname(pathname string) string {
	id := strings.Replace(pathname, rsvpPrefix, "", 1)
	return strings.Replace(id, ".json", "", 1)
}
