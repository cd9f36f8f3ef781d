package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// runContract checks the behaviour every backend must share. Pathnames are
// namespaced per run so shared databases can be reused between runs.
func runContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	ns := fmt.Sprintf("contract-%d-", time.Now().UnixNano())

	t.Run("put then fetch", func(t *testing.T) {
		b, err := s.Put(ctx, ns+"a.json", []byte(`{"a":1}`))
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if b.Pathname != ns+"a.json" {
			t.Fatalf("pathname = %q, want %q", b.Pathname, ns+"a.json")
		}
		if b.URL == "" {
			t.Fatal("expected URL")
		}

		got, err := s.Fetch(ctx, b.URL)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if !bytes.Equal(got, []byte(`{"a":1}`)) {
			t.Fatalf("content = %s", got)
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		if _, err := s.Put(ctx, ns+"over.json", []byte("one")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		b, err := s.Put(ctx, ns+"over.json", []byte("two"))
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := s.Fetch(ctx, b.URL)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if string(got) != "two" {
			t.Fatalf("content = %q, want two", got)
		}

		blobs, err := s.List(ctx, ns+"over")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(blobs) != 1 {
			t.Fatalf("got %d blobs, want 1", len(blobs))
		}
	})

	t.Run("list by prefix ordered by pathname", func(t *testing.T) {
		for _, name := range []string{"list-c.json", "list-a.json", "list-b.json", "other.json"} {
			if _, err := s.Put(ctx, ns+name, []byte("{}")); err != nil {
				t.Fatalf("Put %s: %v", name, err)
			}
		}

		blobs, err := s.List(ctx, ns+"list-")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		want := []string{ns + "list-a.json", ns + "list-b.json", ns + "list-c.json"}
		if len(blobs) != len(want) {
			t.Fatalf("got %d blobs, want %d", len(blobs), len(want))
		}
		for i, b := range blobs {
			if b.Pathname != want[i] {
				t.Errorf("blobs[%d] = %q, want %q", i, b.Pathname, want[i])
			}
			if b.Size != 2 {
				t.Errorf("blobs[%d].Size = %d, want 2", i, b.Size)
			}
			if b.UploadedAt.IsZero() {
				t.Errorf("blobs[%d].UploadedAt is zero", i)
			}
		}
	})

	t.Run("list treats prefix literally", func(t *testing.T) {
		if _, err := s.Put(ctx, ns+"lit_1.json", []byte("{}")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if _, err := s.Put(ctx, ns+"litX1.json", []byte("{}")); err != nil {
			t.Fatalf("Put: %v", err)
		}

		blobs, err := s.List(ctx, ns+"lit_")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(blobs) != 1 || blobs[0].Pathname != ns+"lit_1.json" {
			t.Fatalf("got %+v, want only lit_1.json", blobs)
		}
	})

	t.Run("list with no match is empty", func(t *testing.T) {
		blobs, err := s.List(ctx, ns+"nothing-")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(blobs) != 0 {
			t.Fatalf("got %d blobs, want 0", len(blobs))
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		b, err := s.Put(ctx, ns+"gone.json", []byte("{}"))
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := s.Delete(ctx, b.URL); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := s.Delete(ctx, b.URL); err != nil {
			t.Fatalf("second Delete: %v", err)
		}

		if _, err := s.Fetch(ctx, b.URL); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Fetch after delete: err = %v, want ErrNotFound", err)
		}
		blobs, err := s.List(ctx, ns+"gone")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(blobs) != 0 {
			t.Fatalf("deleted blob still listed: %+v", blobs)
		}
	})
}
