package codehub

import (
	"context"
	"errors"
	"testing"

	"github.com/praveen-sk-07/codegen-code-hub/directory"
)

func strPtr(s string) *string { return &s }

func TestUpdateProfileFields(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	registerAccount(t, engine, "alice", "alice@example.com")

	profile, err := engine.UpdateProfile(ctx, ProfileUpdate{
		Name:         strPtr("Alice Renamed"),
		Organization: strPtr("New Org"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if profile.Name != "Alice Renamed" || profile.Organization != "New Org" {
		t.Fatalf("unexpected profile after update: %+v", profile)
	}
	if profile.Username != "alice" {
		t.Fatalf("untouched field changed: %q", profile.Username)
	}

	// The live snapshot reflects the update too.
	if st := engine.Snapshot(); st.Account == nil || st.Account.Name != "Alice Renamed" {
		t.Fatalf("snapshot not updated: %+v", st.Account)
	}
}

func TestUpdateProfilePassword(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	registerAccount(t, engine, "alice", "alice@example.com")

	if _, err := engine.UpdateProfile(ctx, ProfileUpdate{NewPassword: strPtr("weak")}); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}

	const newPassword = "N3w-Secret-Pass!"
	if _, err := engine.UpdateProfile(ctx, ProfileUpdate{NewPassword: strPtr(newPassword)}); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	engine.Logout(ctx)
	if _, err := engine.Login(ctx, "alice@example.com", testPassword, false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", newPassword, false); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestUpdateProfileDuplicateIdentifier(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	registerAccount(t, engine, "bob", "bob@example.com")
	engine.Logout(ctx)
	registerAccount(t, engine, "alice", "alice@example.com")

	if _, err := engine.UpdateProfile(ctx, ProfileUpdate{Email: strPtr("bob@example.com")}); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}

	// Re-submitting the current email is not a conflict.
	if _, err := engine.UpdateProfile(ctx, ProfileUpdate{Email: strPtr("alice@example.com")}); err != nil {
		t.Fatalf("self-identity update failed: %v", err)
	}
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	if _, err := engine.UpdateProfile(context.Background(), ProfileUpdate{Name: strPtr("x")}); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
}

func TestPeersExcludeSelfAndDemo(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	engine := startEngine(t, rdb, nil, func(cfg *Config) {
		cfg.Demo.SeedAccount = true
		cfg.Demo.Password = testPassword
	})

	// Two classmates of the demo account's organization plus the
	// caller.
	for _, u := range []string{"bob", "carol"} {
		registerAccount(t, engine, u, u+"@example.com")
		if _, err := engine.UpdateProfile(ctx, ProfileUpdate{Organization: strPtr("Adhiyamaan College of Engineering")}); err != nil {
			t.Fatalf("UpdateProfile failed: %v", err)
		}
		engine.Logout(ctx)
	}

	registerAccount(t, engine, "alice", "alice@example.com")
	if _, err := engine.UpdateProfile(ctx, ProfileUpdate{Organization: strPtr("Adhiyamaan College of Engineering")}); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	// Give bob a score so the ordering is observable.
	bob, err := engine.dir.ByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("ByUsername failed: %v", err)
	}
	pts, solved := 50, 3
	if _, err := engine.dir.Apply(ctx, bob.ID, directory.Update{Points: &pts, ProblemsSolved: &solved}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	peers, err := engine.Peers(ctx)
	if err != nil {
		t.Fatalf("Peers failed: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}
	if peers[0].Username != "bob" || peers[1].Username != "carol" {
		t.Fatalf("expected points-descending order bob, carol; got %s, %s", peers[0].Username, peers[1].Username)
	}
	for _, p := range peers {
		if p.Username == "alice" {
			t.Fatal("caller must not appear among peers")
		}
		if p.Username == "demouser" {
			t.Fatal("demo account must not appear among peers")
		}
		if p.Secret != RedactedSecret {
			t.Fatalf("expected redacted secret, got %q", p.Secret)
		}
	}
}

func TestAvailabilityChecksExcludeSelf(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	registerAccount(t, engine, "bob", "bob@example.com")
	engine.Logout(ctx)
	registerAccount(t, engine, "alice", "alice@example.com")

	if ok, _ := engine.CheckEmailAvailable(ctx, "alice@example.com"); !ok {
		t.Fatal("own email must count as available")
	}
	if ok, _ := engine.CheckEmailAvailable(ctx, "bob@example.com"); ok {
		t.Fatal("taken email must not be available")
	}
	if ok, _ := engine.CheckUsernameAvailable(ctx, "alice"); !ok {
		t.Fatal("own username must count as available")
	}
	if ok, _ := engine.CheckUsernameAvailable(ctx, "bob"); ok {
		t.Fatal("taken username must not be available")
	}
	if ok, _ := engine.CheckUsernameAvailable(ctx, "fresh"); !ok {
		t.Fatal("unclaimed username must be available")
	}
}

func TestRegisterDefaultsUserType(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	profile := registerAccount(t, engine, "alice", "alice@example.com")
	if profile.UserType != "student" {
		t.Fatalf("expected default user type student, got %q", profile.UserType)
	}

	updated, err := engine.UpdateProfile(context.Background(), ProfileUpdate{UserType: strPtr("professional")})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.UserType != "professional" {
		t.Fatalf("expected professional, got %q", updated.UserType)
	}
}

func TestIncrementDownloads(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	registerAccount(t, engine, "alice", "alice@example.com")

	for i := 0; i < 3; i++ {
		if _, err := engine.IncrementDownloads(ctx); err != nil {
			t.Fatalf("IncrementDownloads failed: %v", err)
		}
	}
	profile, _ := engine.CurrentAccount()
	if profile.Downloads != 3 {
		t.Fatalf("expected 3 downloads, got %d", profile.Downloads)
	}
}

func TestDeleteAccount(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	profile := registerAccount(t, engine, "alice", "alice@example.com")
	if _, err := engine.CompleteChallenge(ctx, "beginners"); err != nil {
		t.Fatalf("CompleteChallenge failed: %v", err)
	}

	if err := engine.DeleteAccount(ctx); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if engine.IsSignedIn() {
		t.Fatal("expected signed-out state after account deletion")
	}
	if _, err := engine.dir.ByID(ctx, profile.ID); err == nil {
		t.Fatal("expected account gone from directory")
	}

	// Identifiers are claimable again.
	if _, err := engine.Register(ctx, RegisterInput{
		Name: "Alice", Username: "alice", Email: "alice@example.com", Password: testPassword,
	}); err != nil {
		t.Fatalf("re-registration after deletion failed: %v", err)
	}
	done, err := engine.CompletedChallenges(ctx)
	if err != nil {
		t.Fatalf("CompletedChallenges failed: %v", err)
	}
	if len(done) != 0 {
		t.Fatalf("expected no inherited challenge history, got %v", done)
	}
}
