package storage

import (
	"context"
	"crypto/rand"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"

	"wedding-invitation/internal/blob"
)

const guestPrefix = "guest-"

// Matches both guest-0007.json and the legacy guest-guest-0007.json layout.
var guestNumberPattern = regexp.MustCompile(`guest-(\d+)\.json$`)

// NormalizeGuestID accepts "0007", "guest-0007" or "guest-0007.json".
func NormalizeGuestID(id string) string {
	id = strings.TrimSuffix(strings.TrimSpace(id), ".json")
	if id == "" || id == guestPrefix {
		return ""
	}
	if !strings.HasPrefix(id, guestPrefix) {
		id = guestPrefix + id
	}
	return id
}

func guestKey(id string) string {
	return id + ".json"
}

// legacyGuestKey is the guest-guest-0007.json layout of earlier deployments.
// Records found under it are rewritten under guestKey on update.
func legacyGuestKey(id string) string {
	return guestPrefix + guestKey(id)
}

// nextGuestID derives the next sequential id from existing filenames. When the
// scan fails it falls back to guest-<epochMs> so a create can still proceed.
//
// There is no lock between the scan and the write: concurrent creates can
// compute the same id and overwrite each other.
func (r *GuestRepository) nextGuestID(ctx context.Context) string {
	now := r.opts.stamp()

	if r.opts.idStrategy == IDULID {
		id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
		if err == nil {
			return guestPrefix + id.String()
		}
		r.log.Warn().Err(err).Msg("ULID generation failed, using sequential id")
	}

	blobs, err := r.store.List(ctx, guestPrefix)
	if err != nil {
		r.log.Error().Err(err).Msg("Error generating guest ID, falling back to timestamp")
		return fmt.Sprintf("%s%d", guestPrefix, now.UnixMilli())
	}
	return fmt.Sprintf("%s%04d", guestPrefix, maxGuestNumber(blobs)+1)
}

func maxGuestNumber(blobs []blob.Blob) int64 {
	var highest int64
	for _, b := range blobs {
		m := guestNumberPattern.FindStringSubmatch(b.Pathname)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}
