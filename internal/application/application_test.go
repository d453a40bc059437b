package application

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/flashteams/backend/internal/domain/entity"
	domerrors "github.com/flashteams/backend/internal/domain/errors"
	"github.com/flashteams/backend/internal/testkit"
	"github.com/flashteams/backend/pkg/helpers"
	"github.com/flashteams/backend/pkg/mailer"
	"github.com/flashteams/backend/pkg/mailer/templates"
)

type fakeVerifier map[string]*ExternalIdentity

func (f fakeVerifier) Verify(_ context.Context, token string) (*ExternalIdentity, error) {
	id, ok := f[token]
	if !ok {
		return nil, errors.New("token rejected")
	}
	return id, nil
}

type fakeIndex struct {
	indexed map[uuid.UUID]string
	removed []uuid.UUID
	hits    []uuid.UUID
}

func (f *fakeIndex) Index(_ context.Context, u *entity.User) error {
	f.indexed[u.ID] = u.Email
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, id uuid.UUID) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeIndex) Search(context.Context, string, int) ([]uuid.UUID, error) {
	return f.hits, nil
}

type fakeMail struct {
	jobs []mailer.EmailJob
}

func (f *fakeMail) PublishJSON(_ context.Context, body any) error {
	f.jobs = append(f.jobs, body.(mailer.EmailJob))
	return nil
}

type fixture struct {
	deps  Dependencies
	index *fakeIndex
	mail  *fakeMail
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		index: &fakeIndex{indexed: map[uuid.UUID]string{}},
		mail:  &fakeMail{},
	}
	f.deps = Dependencies{
		DB:  testkit.OpenDB(t),
		JWT: helpers.NewJWTManager("test-secret", "flashteams", "flashteams-clients", 60*time.Minute),
		Verifier: fakeVerifier{
			"google-ann": {Subject: "g-1", Email: "ann@example.com", GivenName: "Ann", FamilyName: "Lee"},
			"google-bob": {Subject: "g-2", Email: "bob@example.com"},
		},
		Index:    f.index,
		Mail:     f.mail,
		Branding: templates.EmailData{AppName: "FlashTeams"},
		Logger:   testkit.Logger(),
	}
	return f
}

// services returns a fresh request-scoped set, like the HTTP layer does.
func (f *fixture) services() *Services { return NewServices(f.deps) }

func strptr(s string) *string { return &s }

func mustCreate(t *testing.T, s *Services, u *entity.User) *entity.User {
	t.Helper()
	created, err := s.Users.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return created
}

func TestCreateDerivesUsernameAndHashesPassword(t *testing.T) {
	f := newFixture(t)
	u := mustCreate(t, f.services(), &entity.User{
		FirstName:   "A",
		LastName:    "B",
		Email:       "a@b.com",
		PhoneNumber: strptr("123"),
		Password:    "s3cret-pass",
	})

	if u.ID == uuid.Nil {
		t.Fatal("expected ID")
	}
	if want := "A-B-" + u.ID.String(); u.Username != want {
		t.Fatalf("Username = %q, want %q", u.Username, want)
	}
	if u.PasswordHash == nil || *u.PasswordHash == "s3cret-pass" {
		t.Fatal("password must be stored hashed")
	}
	if !helpers.VerifyPassword(u.PasswordHash, "s3cret-pass") {
		t.Fatal("hash does not verify")
	}
	if f.index.indexed[u.ID] != "a@b.com" {
		t.Fatal("user not indexed")
	}
	if len(f.mail.jobs) != 1 || f.mail.jobs[0].Template != templates.Welcome || f.mail.jobs[0].To != "a@b.com" {
		t.Fatalf("mail jobs = %+v", f.mail.jobs)
	}
}

func TestCreateWithoutLastNameOrPassword(t *testing.T) {
	f := newFixture(t)
	u := mustCreate(t, f.services(), &entity.User{FirstName: "Solo", Email: "solo@example.com"})
	if u.Username != "Solo-"+u.ID.String() {
		t.Fatalf("Username = %q", u.Username)
	}
	if u.PasswordHash != nil {
		t.Fatal("expected no password hash")
	}
}

func TestCreateKeepsSuppliedUsername(t *testing.T) {
	f := newFixture(t)
	u := mustCreate(t, f.services(), &entity.User{FirstName: "Ann", Email: "ann@example.com", Username: "annie"})
	if u.Username != "annie" {
		t.Fatalf("Username = %q", u.Username)
	}

	_, err := f.services().Users.Create(context.Background(), &entity.User{FirstName: "Other", Email: "other@example.com", Username: "annie"})
	var ve *domerrors.ValidationError
	if !errors.As(err, &ve) || !ve.Has("username") {
		t.Fatalf("err = %v, want username failure", err)
	}
}

func TestCreateCollectsEveryFailure(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f.services(), &entity.User{FirstName: "Ann", Email: "ann@example.com", PhoneNumber: strptr("555")})

	_, err := f.services().Users.Create(context.Background(), &entity.User{
		LastName:    strings.Repeat("x", 51),
		Email:       "not-an-email",
		PhoneNumber: strptr("555"),
	})
	var ve *domerrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	for _, field := range []string{"firstName", "lastName", "email", "phoneNumber"} {
		if !ve.Has(field) {
			t.Errorf("missing failure for %s in %+v", field, ve.Failures)
		}
	}
	if domerrors.StatusCode(err) != http.StatusBadRequest {
		t.Fatalf("status = %d", domerrors.StatusCode(err))
	}
}

func TestCreateRejectsTakenEmail(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f.services(), &entity.User{FirstName: "Ann", Email: "ann@example.com"})
	_, err := f.services().Users.Create(context.Background(), &entity.User{FirstName: "Ann", Email: "ann@example.com"})
	var ve *domerrors.ValidationError
	if !errors.As(err, &ve) || !ve.Has("email") {
		t.Fatalf("err = %v, want email failure", err)
	}
}

func TestRequireLastName(t *testing.T) {
	f := newFixture(t)
	f.deps.RequireLastName = true
	_, err := f.services().Users.Create(context.Background(), &entity.User{FirstName: "Ann", Email: "ann@example.com"})
	var ve *domerrors.ValidationError
	if !errors.As(err, &ve) || !ve.Has("lastName") {
		t.Fatalf("err = %v, want lastName failure", err)
	}
}

func TestUpdateKeepsIdentityAndStoredHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orig := mustCreate(t, f.services(), &entity.User{FirstName: "Ann", Email: "ann@example.com", Password: "first-pass"})
	hash := *orig.PasswordHash

	updated, err := f.services().Users.Update(ctx, &entity.User{ID: orig.ID, FirstName: "Anna", Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != orig.ID || updated.FirstName != "Anna" {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.PasswordHash == nil || *updated.PasswordHash != hash {
		t.Fatal("omitted password must keep stored hash")
	}
	if updated.Username != orig.Username {
		t.Fatalf("Username = %q, want %q", updated.Username, orig.Username)
	}

	updated, err = f.services().Users.Update(ctx, &entity.User{ID: orig.ID, FirstName: "Anna", Email: "ann@example.com", Password: "second-pass"})
	if err != nil {
		t.Fatal(err)
	}
	if !helpers.VerifyPassword(updated.PasswordHash, "second-pass") {
		t.Fatal("new password not applied")
	}
}

func TestUpdateUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.services().Users.Update(context.Background(), &entity.User{ID: uuid.New(), FirstName: "Ghost", Email: "ghost@example.com"})
	var ve *domerrors.ValidationError
	if !errors.As(err, &ve) || !ve.Has("id") || !ve.Has("email") {
		t.Fatalf("err = %v, want id and email failures", err)
	}
}

func TestUpdateAllowsOwnPhoneAndUsername(t *testing.T) {
	f := newFixture(t)
	orig := mustCreate(t, f.services(), &entity.User{FirstName: "Ann", Email: "ann@example.com", PhoneNumber: strptr("777"), Username: "ann"})
	_, err := f.services().Users.Update(context.Background(), &entity.User{
		ID: orig.ID, FirstName: "Ann", Email: "ann@example.com", PhoneNumber: strptr("777"), Username: "ann",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestDeleteHidesUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := mustCreate(t, f.services(), &entity.User{FirstName: "Ann", Email: "ann@example.com"})

	if err := f.services().Users.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.services().Users.GetByID(ctx, u.ID); !domerrors.IsNotFound(err) {
		t.Fatalf("GetByID err = %v, want NotFound", err)
	}
	if err := f.services().Users.Delete(ctx, u.ID); !domerrors.IsNotFound(err) {
		t.Fatalf("second Delete err = %v, want NotFound", err)
	}
	all, _ := f.services().Users.GetAll(ctx)
	if len(all) != 0 {
		t.Fatalf("GetAll = %d users, want 0", len(all))
	}
	if got, _ := f.services().Users.GetByEmail(ctx, "ann@example.com", false); got != nil {
		t.Fatal("deleted user must not be found by email")
	}
	if len(f.index.removed) != 1 || f.index.removed[0] != u.ID {
		t.Fatalf("removed = %v", f.index.removed)
	}
}

func TestGetByUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mustCreate(t, f.services(), &entity.User{FirstName: "Ann", Email: "ann@example.com", Username: "ann"})

	u, err := f.services().Users.GetByUsername(ctx, "ann", true)
	if err != nil || u.Email != "ann@example.com" {
		t.Fatalf("GetByUsername = %v, %v", u, err)
	}
	if u, err := f.services().Users.GetByUsername(ctx, "nobody", false); u != nil || err != nil {
		t.Fatalf("GetByUsername = %v, %v; want nil, nil", u, err)
	}
	if _, err := f.services().Users.GetByUsername(ctx, "nobody", true); !domerrors.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestSetPasswordFirstTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mustCreate(t, f.services(), &entity.User{FirstName: "Ann", Email: "ann@example.com"})

	u, err := f.services().Users.SetPasswordFirstTime(ctx, "ann@example.com", "brand-new-pass")
	if err != nil {
		t.Fatalf("SetPasswordFirstTime: %v", err)
	}
	if !helpers.VerifyPassword(u.PasswordHash, "brand-new-pass") {
		t.Fatal("password not set")
	}
	if last := f.mail.jobs[len(f.mail.jobs)-1]; last.Template != templates.PasswordSet {
		t.Fatalf("last mail template = %q", last.Template)
	}

	_, err = f.services().Users.SetPasswordFirstTime(ctx, "ann@example.com", "another-pass")
	if !errors.Is(err, domerrors.ErrPasswordAlreadySet) || domerrors.StatusCode(err) != http.StatusBadRequest {
		t.Fatalf("err = %v, want password already set", err)
	}
	stored, _ := f.services().Users.GetByEmail(ctx, "ann@example.com", true)
	if !helpers.VerifyPassword(stored.PasswordHash, "brand-new-pass") {
		t.Fatal("hash must be unchanged after rejected attempt")
	}

	if _, err := f.services().Users.SetPasswordFirstTime(ctx, "nobody@example.com", "x-pass-123"); !domerrors.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestSearchKeepsIndexOrderAndSkipsDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := mustCreate(t, f.services(), &entity.User{FirstName: "Ann", Email: "ann@example.com"})
	b := mustCreate(t, f.services(), &entity.User{FirstName: "Bob", Email: "bob@example.com"})
	c := mustCreate(t, f.services(), &entity.User{FirstName: "Cid", Email: "cid@example.com"})
	if err := f.services().Users.Delete(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	f.index.hits = []uuid.UUID{c.ID, b.ID, a.ID}

	got, err := f.services().Users.Search(ctx, "x", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 || got[0].ID != c.ID || got[1].ID != a.ID {
		t.Fatalf("Search = %+v", got)
	}

	f.deps.Index = nil
	if _, err := f.services().Users.Search(ctx, "x", 10); !errors.Is(err, ErrSearchUnavailable) {
		t.Fatalf("err = %v, want ErrSearchUnavailable", err)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := mustCreate(t, f.services(), &entity.User{FirstName: "Ann", Email: "ann@example.com", Password: "correct-pass"})

	before := time.Now()
	tok, err := f.services().Auth.Login(ctx, LoginCredentials{Email: "ann@example.com", Password: "correct-pass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	want := before.Add(60 * time.Minute)
	if d := tok.ExpiresAt.Sub(want); d < -5*time.Second || d > 5*time.Second {
		t.Fatalf("ExpiresAt = %v, want about %v", tok.ExpiresAt, want)
	}
	claims, err := f.deps.JWT.Parse(tok.Value)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != u.ID.String() || claims.Email != "ann@example.com" || claims.Username != u.Username {
		t.Fatalf("claims = %+v", claims)
	}

	tests := []struct {
		name  string
		creds LoginCredentials
	}{
		{"wrong password", LoginCredentials{Email: "ann@example.com", Password: "nope"}},
		{"unknown email", LoginCredentials{Email: "ghost@example.com", Password: "correct-pass"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.services().Auth.Login(ctx, tt.creds)
			if !errors.Is(err, domerrors.ErrInvalidCredentials) || domerrors.StatusCode(err) != http.StatusUnauthorized {
				t.Fatalf("err = %v, want 401 invalid credentials", err)
			}
		})
	}
}

func TestLoginWithoutLocalPassword(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f.services(), &entity.User{FirstName: "Ann", Email: "ann@example.com"})
	_, err := f.services().Auth.Login(context.Background(), LoginCredentials{Email: "ann@example.com", Password: ""})
	if !errors.Is(err, domerrors.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want invalid credentials", err)
	}
}

func TestAuthenticateThirdParty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.services().Auth.Authenticate(ctx, ThirdPartyCredential{Token: "google-ann"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !first.IsNewUser || first.Email != "ann@example.com" {
		t.Fatalf("first = %+v", first)
	}
	second, err := f.services().Auth.Authenticate(ctx, ThirdPartyCredential{Token: "google-ann"})
	if err != nil {
		t.Fatal(err)
	}
	if second.IsNewUser {
		t.Fatal("second sign-in must not be new")
	}

	c1, _ := f.deps.JWT.Parse(first.Token.Value)
	c2, _ := f.deps.JWT.Parse(second.Token.Value)
	if c1.UserID != c2.UserID {
		t.Fatalf("user ids differ: %s vs %s", c1.UserID, c2.UserID)
	}

	u, _ := f.services().Users.GetByEmail(ctx, "ann@example.com", true)
	if u.FirstName != "Ann" || u.LastName != "Lee" || u.ExternalID == nil || *u.ExternalID != "g-1" || u.HasPassword() {
		t.Fatalf("provisioned user = %+v", u)
	}
}

func TestAuthenticateFallsBackToEmailName(t *testing.T) {
	f := newFixture(t)
	res, err := f.services().Auth.Authenticate(context.Background(), ThirdPartyCredential{Token: "google-bob"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	u, _ := f.services().Users.GetByEmail(context.Background(), res.Email, true)
	if u.FirstName != "bob" {
		t.Fatalf("FirstName = %q, want bob", u.FirstName)
	}
}

func TestAuthenticateRejectsDeletedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.services().Auth.Authenticate(ctx, ThirdPartyCredential{Token: "google-ann"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	claims, err := f.deps.JWT.Parse(first.Token.Value)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.services().Users.Delete(ctx, uuid.MustParse(claims.UserID)); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, err = f.services().Auth.Authenticate(ctx, ThirdPartyCredential{Token: "google-ann"})
	if !errors.Is(err, domerrors.ErrAccountDeleted) || domerrors.StatusCode(err) != http.StatusForbidden {
		t.Fatalf("err = %v, want ErrAccountDeleted", err)
	}
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.services().Auth.Authenticate(context.Background(), ThirdPartyCredential{Token: "forged"})
	if !errors.Is(err, domerrors.ErrInvalidThirdPartyToken) || domerrors.StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 invalid third-party token", err)
	}
}

func TestGetClaim(t *testing.T) {
	f := newFixture(t)
	auth := f.services().Auth
	claims := &helpers.Claims{UserID: "u-1", Email: "ann@example.com"}

	if v, err := auth.GetClaim(claims, helpers.ClaimEmail, true); err != nil || v != "ann@example.com" {
		t.Fatalf("GetClaim = %q, %v", v, err)
	}
	if v, err := auth.GetClaim(claims, helpers.ClaimUsername, false); err != nil || v != "" {
		t.Fatalf("GetClaim = %q, %v", v, err)
	}
	if _, err := auth.GetClaim(claims, helpers.ClaimUsername, true); !errors.Is(err, domerrors.ErrClaimNotFound) {
		t.Fatalf("err = %v, want claim not found", err)
	}
	if _, err := auth.GetClaim(nil, helpers.ClaimEmail, true); !errors.Is(err, domerrors.ErrClaimNotFound) {
		t.Fatalf("err = %v, want claim not found", err)
	}
}

func TestActivityTouch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()

	svc := f.services().Activity
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	if err := svc.Touch(ctx, id); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	svc = f.services().Activity
	svc.now = func() time.Time { return clock.Add(time.Hour) }
	if err := svc.Touch(ctx, id); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	seen, err := f.services().Activity.LastSeen(ctx, id)
	if err != nil || seen == nil {
		t.Fatalf("LastSeen = %v, %v", seen, err)
	}
	if !seen.Equal(clock.Add(time.Hour)) {
		t.Fatalf("LastSeen = %v, want %v", seen, clock.Add(time.Hour))
	}
	if none, _ := f.services().Activity.LastSeen(ctx, uuid.New()); none != nil {
		t.Fatal("expected nil for unknown user")
	}
}
