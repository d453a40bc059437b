package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/flashteams/backend/internal/domain/entity"
	domerrors "github.com/flashteams/backend/internal/domain/errors"
	"github.com/flashteams/backend/internal/domain/repository"
	"github.com/flashteams/backend/internal/infrastructure/postgres"
	"github.com/flashteams/backend/internal/testkit"
)

func newUser(first, email string) *entity.User {
	return &entity.User{FirstName: first, Email: email, Username: first + "-" + uuid.NewString()}
}

func byEmail(email string) repository.Predicate {
	return repository.Where("email = ?", email)
}

func TestInsertAssignsIdentityAndPersists(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	repo := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(db))

	u, err := repo.Insert(ctx, newUser("Ann", "ann@example.com"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if u.ID == uuid.Nil {
		t.Fatal("expected ID to be assigned")
	}

	fresh := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(db))
	got, err := fresh.Select(ctx, byEmail("ann@example.com"))
	if err != nil || got == nil {
		t.Fatalf("Select: %v, %v", got, err)
	}
	if got.ID != u.ID {
		t.Fatalf("ID = %s, want %s", got.ID, u.ID)
	}
}

func TestInsertWithoutSaveStagesOnly(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	uow := postgres.NewUnitOfWork(db)
	repo := postgres.NewRepository[entity.User](uow)

	if _, err := repo.Insert(ctx, newUser("Bob", "bob@example.com"), repository.WithoutSave()); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if n, _ := repo.GetTotalCount(ctx, repository.Predicate{}); n != 0 {
		t.Fatalf("count before save = %d, want 0", n)
	}
	if err := repo.SaveChanges(ctx); err != nil {
		t.Fatalf("SaveChanges: %v", err)
	}
	if n, _ := repo.GetTotalCount(ctx, repository.Predicate{}); n != 1 {
		t.Fatalf("count after save = %d, want 1", n)
	}
}

func TestInsertManyIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	repo := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(db))

	a := newUser("A", "dup@example.com")
	b := newUser("B", "dup@example.com")
	if err := repo.InsertMany(ctx, []*entity.User{a, b}); err == nil {
		t.Fatal("expected unique violation")
	}

	check := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(db))
	if n, _ := check.GetTotalCount(ctx, repository.Predicate{}); n != 0 {
		t.Fatalf("count = %d, want 0 after failed batch", n)
	}
}

func TestSelectMissing(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(testkit.OpenDB(t)))

	got, err := repo.Select(ctx, byEmail("nobody@example.com"))
	if err != nil || got != nil {
		t.Fatalf("Select = %v, %v; want nil, nil", got, err)
	}

	_, err = repo.Select(ctx, byEmail("nobody@example.com"), repository.ThrowIfMissing())
	if !domerrors.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
	if err.Error() != "User is not found." {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestSelectReturnsTrackedInstance(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	uow := postgres.NewUnitOfWork(db)
	repo := postgres.NewRepository[entity.User](uow)
	if _, err := repo.Insert(ctx, newUser("Cid", "cid@example.com")); err != nil {
		t.Fatal(err)
	}

	first, _ := repo.Select(ctx, byEmail("cid@example.com"))
	second, _ := repo.Select(ctx, byEmail("cid@example.com"))
	if first != second {
		t.Fatal("expected identity map to return the same instance")
	}

	untracked, _ := repo.Select(ctx, byEmail("cid@example.com"), repository.WithoutTracking())
	if untracked == first {
		t.Fatal("expected detached copy")
	}

	// in-place edits of tracked entities are detected on save
	first.FirstName = "Cidney"
	if err := repo.SaveChanges(ctx); err != nil {
		t.Fatal(err)
	}
	check := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(db))
	got, _ := check.Select(ctx, byEmail("cid@example.com"))
	if got.FirstName != "Cidney" {
		t.Fatalf("FirstName = %q, want Cidney", got.FirstName)
	}
}

func TestSelectAllQuery(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(testkit.OpenDB(t)))
	for _, u := range []*entity.User{
		newUser("A", "a@example.com"),
		newUser("B", "b@example.com"),
		newUser("C", "c@example.com"),
	} {
		if _, err := repo.Insert(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	q := repo.SelectAll(repository.Where("first_name <> ?", "B"))
	n, err := q.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Count = %d, %v; want 2", n, err)
	}
	rows, err := q.List(ctx)
	if err != nil || len(rows) != 2 {
		t.Fatalf("List = %d rows, %v; want 2", len(rows), err)
	}
	all, err := repo.SelectAllList(ctx, repository.Predicate{})
	if err != nil || len(all) != 3 {
		t.Fatalf("SelectAllList = %d rows, %v; want 3", len(all), err)
	}
}

func TestUpdateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	repo := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(db))
	orig, err := repo.Insert(ctx, newUser("Dan", "dan@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	replacement := newUser("Daniel", "dan@example.com")
	replacement.ID = uuid.New()
	updated, err := repo.Update(ctx, repository.Where("id = ?", orig.ID), replacement)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != orig.ID {
		t.Fatalf("ID changed to %s", updated.ID)
	}
	if updated.FirstName != "Daniel" {
		t.Fatalf("FirstName = %q", updated.FirstName)
	}

	check := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(db))
	if n, _ := check.GetTotalCount(ctx, repository.Where("first_name = ?", "Daniel")); n != 1 {
		t.Fatalf("persisted count = %d, want 1", n)
	}
}

func TestUpdateMissing(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(testkit.OpenDB(t)))
	p := repository.Where("id = ?", uuid.New())

	if _, err := repo.Update(ctx, p, newUser("X", "x@example.com")); !domerrors.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
	got, err := repo.Update(ctx, p, newUser("X", "x@example.com"), repository.AllowMissing())
	if err != nil || got != nil {
		t.Fatalf("Update = %v, %v; want nil, nil", got, err)
	}
}

func TestUpdateWithoutSave(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	repo := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(db))
	orig, _ := repo.Insert(ctx, newUser("Eve", "eve@example.com"))

	if _, err := repo.Update(ctx, repository.Where("id = ?", orig.ID), newUser("Evelyn", "eve@example.com"), repository.WithoutSave()); err != nil {
		t.Fatal(err)
	}
	check := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(db))
	got, _ := check.Select(ctx, repository.Where("id = ?", orig.ID))
	if got.FirstName != "Eve" {
		t.Fatalf("FirstName = %q before SaveChanges, want Eve", got.FirstName)
	}
}

func TestDeleteSoftDeletable(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	repo := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(db))
	u, _ := repo.Insert(ctx, newUser("Fay", "fay@example.com"))

	ok, err := repo.Delete(ctx, repository.Where("id = ?", u.ID))
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v; want true", ok, err)
	}

	check := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(db))
	if n, _ := check.GetTotalCount(ctx, repository.Where("id = ?", u.ID)); n != 1 {
		t.Fatalf("row should still exist, count = %d", n)
	}
	live := repository.And(repository.Where("id = ?", u.ID), repository.Where("is_deleted = ?", false))
	if ok, _ := check.Exists(ctx, live); ok {
		t.Fatal("row should be hidden by the is_deleted filter")
	}
}

func TestDeleteMissing(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(testkit.OpenDB(t)))
	p := repository.Where("id = ?", uuid.New())

	ok, err := repo.Delete(ctx, p)
	if err != nil || ok {
		t.Fatalf("Delete = %v, %v; want false, nil", ok, err)
	}
	ok, err = repo.Delete(ctx, p, repository.ThrowIfMissing())
	if ok || !domerrors.IsNotFound(err) {
		t.Fatalf("Delete = %v, %v; want false, NotFound", ok, err)
	}
}

func TestDeleteHardDeletable(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	repo := postgres.NewRepository[entity.UserActivity](postgres.NewUnitOfWork(db))
	id := uuid.New()
	if _, err := repo.Insert(ctx, &entity.UserActivity{UserID: id, LastSeenTime: time.Now()}); err != nil {
		t.Fatal(err)
	}

	ok, err := repo.Delete(ctx, repository.Where("user_id = ?", id))
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if n, _ := repo.GetTotalCount(ctx, repository.Predicate{}); n != 0 {
		t.Fatalf("count = %d, want 0", n)
	}
}

func TestDeleteMany(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	users := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(db))
	if err := users.InsertMany(ctx, []*entity.User{newUser("G", "g1@example.com"), newUser("G", "g2@example.com"), newUser("H", "h@example.com")}); err != nil {
		t.Fatal(err)
	}

	if err := users.DeleteMany(ctx, repository.Where("first_name = ?", "G")); err != nil {
		t.Fatal(err)
	}
	if n, _ := users.GetTotalCount(ctx, repository.Where("is_deleted = ?", true)); n != 2 {
		t.Fatalf("soft-deleted = %d, want 2", n)
	}

	acts := postgres.NewRepository[entity.UserActivity](postgres.NewUnitOfWork(db))
	if err := acts.InsertMany(ctx, []*entity.UserActivity{
		{UserID: uuid.New(), LastSeenTime: time.Now()},
		{UserID: uuid.New(), LastSeenTime: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}
	if err := acts.DeleteMany(ctx, repository.Predicate{}); err != nil {
		t.Fatal(err)
	}
	if n, _ := acts.GetTotalCount(ctx, repository.Predicate{}); n != 0 {
		t.Fatalf("activities = %d, want 0", n)
	}
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(testkit.OpenDB(t)))
	if _, err := repo.Insert(ctx, newUser("Ivy", "ivy@example.com")); err != nil {
		t.Fatal(err)
	}

	if ok, err := repo.Exists(ctx, byEmail("ivy@example.com")); err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if ok, err := repo.Exists(ctx, byEmail("nope@example.com")); err != nil || ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if _, err := repo.Exists(ctx, byEmail("nope@example.com"), repository.ThrowIfMissing()); !domerrors.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestIncludeLoadsAssociations(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	uow := postgres.NewUnitOfWork(db)
	users := postgres.NewRepository[entity.User](uow)
	chats := postgres.NewRepository[entity.Chat](uow)
	messages := postgres.NewRepository[entity.Message](uow)

	sender, _ := users.Insert(ctx, newUser("Jo", "jo@example.com"))
	chat, _ := chats.Insert(ctx, &entity.Chat{Type: entity.ChatTypeGroup})
	msg, err := messages.Insert(ctx, &entity.Message{Content: "hi", SenderID: sender.ID, ChatID: chat.ID})
	if err != nil {
		t.Fatal(err)
	}

	fresh := postgres.NewRepository[entity.Message](postgres.NewUnitOfWork(db))
	got, err := fresh.Select(ctx, repository.Where("id = ?", msg.ID), repository.Include("Sender", "Chat"))
	if err != nil || got == nil {
		t.Fatalf("Select: %v, %v", got, err)
	}
	if got.Sender == nil || got.Sender.Email != "jo@example.com" {
		t.Fatalf("Sender not loaded: %+v", got.Sender)
	}
	if got.Chat == nil || got.Chat.Type != entity.ChatTypeGroup {
		t.Fatalf("Chat not loaded: %+v", got.Chat)
	}
}

func TestUpdateLoadsIncludes(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	uow := postgres.NewUnitOfWork(db)
	users := postgres.NewRepository[entity.User](uow)
	chats := postgres.NewRepository[entity.Chat](uow)
	messages := postgres.NewRepository[entity.Message](uow)

	sender, err := users.Insert(ctx, newUser("Lu", "lu@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	chat, err := chats.Insert(ctx, &entity.Chat{Type: entity.ChatTypePrivate})
	if err != nil {
		t.Fatal(err)
	}
	msg, err := messages.Insert(ctx, &entity.Message{Content: "draft", SenderID: sender.ID, ChatID: chat.ID})
	if err != nil {
		t.Fatal(err)
	}

	fresh := postgres.NewRepository[entity.Message](postgres.NewUnitOfWork(db))
	got, err := fresh.Update(ctx, repository.Where("id = ?", msg.ID),
		&entity.Message{Content: "final", SenderID: sender.ID, ChatID: chat.ID},
		repository.Include("Sender", "Chat"))
	if err != nil || got == nil {
		t.Fatalf("Update: %v, %v", got, err)
	}
	if got.Content != "final" {
		t.Fatalf("content = %q", got.Content)
	}
	if got.Sender == nil || got.Sender.Email != "lu@example.com" {
		t.Fatalf("Sender not loaded: %+v", got.Sender)
	}
	if got.Chat == nil || got.Chat.Type != entity.ChatTypePrivate {
		t.Fatalf("Chat not loaded: %+v", got.Chat)
	}
}

func TestUnitOfWorkDiscardsUnsavedWork(t *testing.T) {
	ctx := context.Background()
	db := testkit.OpenDB(t)
	uow := postgres.NewUnitOfWork(db)
	repo := postgres.NewRepository[entity.User](uow)

	u := newUser("Kim", "kim@example.com")
	if _, err := repo.Insert(ctx, u, repository.WithoutSave()); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Delete(ctx, repository.Where("id = ?", uuid.New())); err != nil {
		t.Fatal(err)
	}
	if uow.Tracked() != 1 {
		t.Fatalf("tracked = %d, want 1", uow.Tracked())
	}

	other := postgres.NewRepository[entity.User](postgres.NewUnitOfWork(db))
	if n, _ := other.GetTotalCount(ctx, repository.Predicate{}); n != 0 {
		t.Fatalf("count = %d, want 0", n)
	}
}
