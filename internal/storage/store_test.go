package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/parleychat/parley/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("file:" + filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewRejectsUnusableDSN(t *testing.T) {
	// A directory is not a database file; setup must fail cleanly.
	if _, err := New("file:" + t.TempDir()); err == nil {
		t.Fatal("want error for an unopenable database path")
	}
}

func TestMessageRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg, err := domain.NewMessage("general", "alice", domain.MessageText, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.InsertMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}

	room, ok, err := s.MessageRoom(ctx, msg.ID)
	if err != nil || !ok {
		t.Fatalf("MessageRoom: (%v, %v)", ok, err)
	}
	if room != "general" {
		t.Fatalf("got room %q, want general", room)
	}

	recent, err := s.RecentMessages(ctx, "general", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].Content != "hello" {
		t.Fatalf("got %+v, want one message \"hello\"", recent)
	}
}

func TestRecentMessagesOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, content := range []string{"one", "two", "three"} {
		msg, err := domain.NewMessage("general", "alice", domain.MessageText, content)
		if err != nil {
			t.Fatal(err)
		}
		msg.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := s.InsertMessage(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := s.RecentMessages(ctx, "general", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d messages, want 2", len(recent))
	}
	if recent[0].Content != "two" || recent[1].Content != "three" {
		t.Fatalf("got [%s, %s], want newest two oldest-first", recent[0].Content, recent[1].Content)
	}
}

func TestUnknownMessageRoom(t *testing.T) {
	s := newTestStore(t)
	if _, ok, err := s.MessageRoom(context.Background(), "ghost"); err != nil || ok {
		t.Fatalf("got (%v, %v), want (false, nil)", ok, err)
	}
}

func TestReactionPersistence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg, _ := domain.NewMessage("general", "alice", domain.MessageText, "hello")
	if err := s.InsertMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}

	if err := s.SetReaction(ctx, msg.ID, "👍", "bob", true); err != nil {
		t.Fatal(err)
	}
	// Idempotent re-apply.
	if err := s.SetReaction(ctx, msg.ID, "👍", "bob", true); err != nil {
		t.Fatal(err)
	}
	users, err := s.ReactionUsers(ctx, msg.ID, "👍")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0] != "bob" {
		t.Fatalf("got %v, want [bob]", users)
	}

	if err := s.SetReaction(ctx, msg.ID, "👍", "bob", false); err != nil {
		t.Fatal(err)
	}
	users, err = s.ReactionUsers(ctx, msg.ID, "👍")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 0 {
		t.Fatalf("got %v, want empty set", users)
	}
}

func TestVotePersistence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.EnsureTarget(ctx, "post-1", "forum"); err != nil {
		t.Fatal(err)
	}
	room, ok, err := s.TargetRoom(ctx, "post-1")
	if err != nil || !ok || room != "forum" {
		t.Fatalf("TargetRoom: (%v, %v, %v)", room, ok, err)
	}

	up := domain.VoteUp
	if err := s.SetVote(ctx, "post-1", "alice", &up, 1); err != nil {
		t.Fatal(err)
	}
	if score, err := s.TargetScore(ctx, "post-1"); err != nil || score != 1 {
		t.Fatalf("got (%d, %v), want (1, nil)", score, err)
	}

	down := domain.VoteDown
	if err := s.SetVote(ctx, "post-1", "alice", &down, -1); err != nil {
		t.Fatal(err)
	}
	if err := s.SetVote(ctx, "post-1", "alice", nil, 0); err != nil {
		t.Fatal(err)
	}
	if score, err := s.TargetScore(ctx, "post-1"); err != nil || score != 0 {
		t.Fatalf("got (%d, %v), want (0, nil)", score, err)
	}
}
