package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/gopherchat/gopherchat/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Participant{}, &Conversation{}, &Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, repo *Repo, email string) *models.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), email, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*Service, *Repo, *fakeClock) {
	t.Helper()
	db := openTestDB(t)
	repo := NewRepo(db)
	clock := &fakeClock{now: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)}
	return NewService(repo, clock.Now), repo, clock
}

func TestFindOrCreateOneOnOne_Idempotent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, repo, "alice@example.com")
	bob := createUser(t, repo, "bob@example.com")

	first, err := svc.FindOrCreateOneOnOne(ctx, alice, bob.Email)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if len(first.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(first.Participants))
	}

	second, err := svc.FindOrCreateOneOnOne(ctx, alice, bob.Email)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same conversation, got %d then %d", first.ID, second.ID)
	}

	// Resolving from the other side lands on the same conversation too.
	fromBob, err := svc.FindOrCreateOneOnOne(ctx, bob, alice.Email)
	if err != nil {
		t.Fatalf("resolve from bob: %v", err)
	}
	if fromBob.ID != first.ID {
		t.Fatalf("expected same conversation from bob, got %d", fromBob.ID)
	}
}

func TestFindOrCreateOneOnOne_UnknownEmail(t *testing.T) {
	svc, repo, _ := newTestService(t)

	alice := createUser(t, repo, "alice@example.com")

	_, err := svc.FindOrCreateOneOnOne(context.Background(), alice, "nobody@example.com")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestFindOneOnOne_MissingConversation(t *testing.T) {
	svc, repo, _ := newTestService(t)

	alice := createUser(t, repo, "alice@example.com")
	createUser(t, repo, "bob@example.com")

	_, err := svc.FindOneOnOne(context.Background(), alice, "bob@example.com")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestCreateConversation_DuplicateReturnsExisting(t *testing.T) {
	_, repo, _ := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, repo, "alice@example.com")
	bob := createUser(t, repo, "bob@example.com")

	pa, err := repo.ParticipantForUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("participant alice: %v", err)
	}
	pb, err := repo.ParticipantForUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("participant bob: %v", err)
	}

	key := PairKey(pa.ID, pb.ID)
	parts := []models.Participant{*pa, *pb}

	first, created, err := repo.CreateConversationOrGetExisting(ctx, key, parts)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if !created {
		t.Fatalf("expected first call to create")
	}

	// A racing second create must collapse onto the winner.
	second, created, err := repo.CreateConversationOrGetExisting(ctx, key, parts)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created {
		t.Fatalf("expected second call to return the existing conversation")
	}
	if second.ID != first.ID {
		t.Fatalf("expected conversation %d, got %d", first.ID, second.ID)
	}
}

func TestPairKey_Canonical(t *testing.T) {
	if PairKey(7, 3) != PairKey(3, 7) {
		t.Fatalf("pair key must not depend on argument order")
	}
	if PairKey(3, 7) == PairKey(3, 8) {
		t.Fatalf("distinct pairs must get distinct keys")
	}
}

func TestPostMessage_EmptyRejected(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, repo, "alice@example.com")
	bob := createUser(t, repo, "bob@example.com")

	conv, err := svc.FindOrCreateOneOnOne(ctx, alice, bob.Email)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	author, err := repo.ParticipantForUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("participant: %v", err)
	}

	if _, err := svc.PostMessage(ctx, conv, author, ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}

	msgs, err := svc.ListMessages(ctx, conv)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages after rejected post, got %d", len(msgs))
	}
}

func TestPostMessage_OrderedByTimestamp(t *testing.T) {
	svc, repo, clock := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, repo, "alice@example.com")
	bob := createUser(t, repo, "bob@example.com")

	conv, err := svc.FindOrCreateOneOnOne(ctx, alice, bob.Email)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	pa, _ := repo.ParticipantForUser(ctx, alice.ID)
	pb, _ := repo.ParticipantForUser(ctx, bob.ID)

	texts := []string{"hi", "hello", "how are you"}
	authors := []*models.Participant{pa, pb, pa}
	for i, text := range texts {
		if _, err := svc.PostMessage(ctx, conv, authors[i], text); err != nil {
			t.Fatalf("post %q: %v", text, err)
		}
		clock.Advance(time.Minute)
	}

	msgs, err := svc.ListMessages(ctx, conv)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != len(texts) {
		t.Fatalf("expected %d messages, got %d", len(texts), len(msgs))
	}
	for i, text := range texts {
		if msgs[i].Body != text {
			t.Fatalf("message %d: expected %q, got %q", i, text, msgs[i].Body)
		}
	}
	if msgs[0].Email != "alice@example.com" || msgs[1].Email != "bob@example.com" {
		t.Fatalf("unexpected authors: %q, %q", msgs[0].Email, msgs[1].Email)
	}
}

func TestPostMessage_AuthorMustBeParticipant(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, repo, "alice@example.com")
	bob := createUser(t, repo, "bob@example.com")
	eve := createUser(t, repo, "eve@example.com")

	conv, err := svc.FindOrCreateOneOnOne(ctx, alice, bob.Email)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	outsider, err := repo.ParticipantForUser(ctx, eve.ID)
	if err != nil {
		t.Fatalf("participant: %v", err)
	}

	if _, err := svc.PostMessage(ctx, conv, outsider, "let me in"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}

func TestFindOrCreate_NewConversationHasNoMessages(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, repo, "alice@example.com")
	bob := createUser(t, repo, "bob@example.com")

	conv, err := svc.FindOrCreateOneOnOne(ctx, alice, bob.Email)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	msgs, err := svc.ListMessages(ctx, conv)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty message list, got %d", len(msgs))
	}
}

func TestSummary_EmptyConversation(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, repo, "alice@example.com")
	bob := createUser(t, repo, "bob@example.com")

	conv, err := svc.FindOrCreateOneOnOne(ctx, alice, bob.Email)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if _, err := svc.Summary(ctx, conv); !errors.Is(err, ErrNoMessages) {
		t.Fatalf("expected ErrNoMessages, got %v", err)
	}
}

func TestConversationSummaries_SkipsEmptyAndSortsNewestFirst(t *testing.T) {
	svc, repo, clock := newTestService(t)
	ctx := context.Background()

	alice := createUser(t, repo, "alice@example.com")
	bob := createUser(t, repo, "bob@example.com")
	carol := createUser(t, repo, "carol@example.com")
	dave := createUser(t, repo, "dave@example.com")

	pa, _ := repo.ParticipantForUser(ctx, alice.ID)

	withBob, err := svc.FindOrCreateOneOnOne(ctx, alice, bob.Email)
	if err != nil {
		t.Fatalf("resolve bob: %v", err)
	}
	withCarol, err := svc.FindOrCreateOneOnOne(ctx, alice, carol.Email)
	if err != nil {
		t.Fatalf("resolve carol: %v", err)
	}
	// Conversation with dave never receives a message.
	if _, err := svc.FindOrCreateOneOnOne(ctx, alice, dave.Email); err != nil {
		t.Fatalf("resolve dave: %v", err)
	}

	if _, err := svc.PostMessage(ctx, withBob, pa, "old"); err != nil {
		t.Fatalf("post to bob: %v", err)
	}
	clock.Advance(time.Hour)
	if _, err := svc.PostMessage(ctx, withCarol, pa, "new"); err != nil {
		t.Fatalf("post to carol: %v", err)
	}

	summaries, err := svc.ConversationSummaries(ctx, alice)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].LastMessage.Body != "new" || summaries[1].LastMessage.Body != "old" {
		t.Fatalf("expected newest-first order, got %q then %q",
			summaries[0].LastMessage.Body, summaries[1].LastMessage.Body)
	}

	wantEmails := []string{"alice@example.com", "carol@example.com"}
	if len(summaries[0].ParticipantEmails) != 2 ||
		summaries[0].ParticipantEmails[0] != wantEmails[0] ||
		summaries[0].ParticipantEmails[1] != wantEmails[1] {
		t.Fatalf("unexpected participant emails: %v", summaries[0].ParticipantEmails)
	}
}
