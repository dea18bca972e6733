package feedback

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"topcompras/storefront"
	"topcompras/storefront/blob"
)

var fixed = time.Date(2026, 3, 5, 17, 4, 0, 0, time.UTC)

func newService(t *testing.T) *Service {
	t.Helper()
	return New(blob.NewMemory(), nil,
		WithClock(func() time.Time { return fixed }),
		WithLocation(time.FixedZone("BRT", -3*60*60)))
}

func TestAddDefaults(t *testing.T) {
	s := newService(t)
	fb, total, err := s.Add(context.Background(), Input{Texto: "  Entrega rápida <3 "})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected total 1, got %d", total)
	}
	if fb.ID != fixed.UnixMilli() {
		t.Fatalf("expected id %d, got %d", fixed.UnixMilli(), fb.ID)
	}
	if fb.Nome != DefaultName || fb.Texto != "Entrega rápida 3" {
		t.Fatalf("unexpected name/text %q %q", fb.Nome, fb.Texto)
	}
	if fb.Data != "05/03/2026" || fb.Hora != "14:04" {
		t.Fatalf("expected 05/03/2026 14:04, got %s %s", fb.Data, fb.Hora)
	}
	if fb.Likes != 0 || fb.LikedBy == nil || len(fb.LikedBy) != 0 {
		t.Fatalf("expected empty likes, got %d %v", fb.Likes, fb.LikedBy)
	}
}

func TestAddValidation(t *testing.T) {
	s := newService(t)
	tests := []struct {
		name string
		in   Input
		msg  string
	}{
		{"empty", Input{Texto: "   "}, MsgEmpty},
		{"only brackets", Input{Texto: "<>"}, MsgEmpty},
		{"bad email", Input{Texto: "ok", Email: "nao-e-email"}, MsgInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Add(context.Background(), tt.in)
			ve, ok := storefront.IsValidation(err)
			if !ok || ve.Message != tt.msg {
				t.Fatalf("expected %q, got %v", tt.msg, err)
			}
		})
	}
}

func TestAddOrderingAndCap(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	for i := 0; i < MaxFeedbacks+5; i++ {
		in := Input{Texto: fmt.Sprintf("feedback %d", i)}
		if _, _, err := s.Add(ctx, in); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	list, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(list) != MaxFeedbacks {
		t.Fatalf("expected %d entries, got %d", MaxFeedbacks, len(list))
	}
	if list[0].Texto != fmt.Sprintf("feedback %d", MaxFeedbacks+4) {
		t.Fatalf("expected newest first, got %q", list[0].Texto)
	}

	seen := make(map[int64]bool)
	for _, fb := range list {
		if seen[fb.ID] {
			t.Fatalf("duplicate id %d", fb.ID)
		}
		seen[fb.ID] = true
	}
}

func TestReact(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	fb, _, err := s.Add(ctx, Input{ID: storefront.FlexNumber{Value: 42, Set: true}, Texto: "Ótimo"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if fb.ID != 42 {
		t.Fatalf("expected client id 42, got %d", fb.ID)
	}

	got, err := s.React(ctx, 42, "u1", ActionLike)
	if err != nil || got.Likes != 1 {
		t.Fatalf("expected 1 like, got %d (%v)", got.Likes, err)
	}
	if _, err := s.React(ctx, 42, "u1", ActionLike); !errors.Is(err, ErrAlreadyLiked) {
		t.Fatalf("expected ErrAlreadyLiked, got %v", err)
	}
	if _, err := s.React(ctx, 42, "u2", ActionUnlike); !errors.Is(err, ErrNotLiked) {
		t.Fatalf("expected ErrNotLiked, got %v", err)
	}
	got, err = s.React(ctx, 42, "u1", ActionUnlike)
	if err != nil || got.Likes != 0 || len(got.LikedBy) != 0 {
		t.Fatalf("expected like removed, got %+v (%v)", got, err)
	}

	if _, err := s.React(ctx, 7, "u1", ActionLike); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.React(ctx, 42, "u1", "love"); err == nil {
		t.Fatal("expected invalid action error")
	}
	if _, err := s.React(ctx, 42, "", ActionLike); err == nil {
		t.Fatal("expected missing user id error")
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	a, _, _ := s.Add(ctx, Input{Texto: "a"})
	b, _, _ := s.Add(ctx, Input{Texto: "b"})

	total, err := s.Delete(ctx, a.ID)
	if err != nil || total != 1 {
		t.Fatalf("expected 1 remaining, got %d (%v)", total, err)
	}
	if _, err := s.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	list, _ := s.All(ctx)
	if len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("expected only %d left, got %+v", b.ID, list)
	}
}
