package codehub

import (
	"context"
	"errors"
	"testing"
)

func TestChallengeCatalog(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	catalog := engine.Challenges()
	if len(catalog) != 9 {
		t.Fatalf("expected 9 challenges, got %d", len(catalog))
	}

	points := map[string]int{}
	for _, c := range catalog {
		points[c.ID] = c.Points
	}
	expect := map[string]int{
		"beginners":    10,
		"if-else":      15,
		"strings":      20,
		"loops":        25,
		"intermediate": 30,
		"arrays":       35,
		"patterns":     40,
		"advanced":     45,
		"javascript":   50,
	}
	for id, want := range expect {
		if points[id] != want {
			t.Errorf("challenge %s: expected %d points, got %d", id, want, points[id])
		}
	}
}

func TestCompleteChallengeAwardsOnce(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	registerAccount(t, engine, "alice", "alice@example.com")

	awarded, err := engine.CompleteChallenge(ctx, "loops")
	if err != nil {
		t.Fatalf("CompleteChallenge failed: %v", err)
	}
	if awarded != 25 {
		t.Fatalf("expected 25 points, got %d", awarded)
	}

	profile, _ := engine.CurrentAccount()
	if profile.Points != 25 || profile.ProblemsSolved != 1 {
		t.Fatalf("expected 25 points / 1 solved, got %d / %d", profile.Points, profile.ProblemsSolved)
	}

	// Replays award nothing and leave the profile untouched.
	awarded, err = engine.CompleteChallenge(ctx, "loops")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if awarded != 0 {
		t.Fatalf("expected no points on replay, got %d", awarded)
	}
	profile, _ = engine.CurrentAccount()
	if profile.Points != 25 || profile.ProblemsSolved != 1 {
		t.Fatalf("replay mutated profile: %d / %d", profile.Points, profile.ProblemsSolved)
	}
	if got := engine.Metrics().Value(MetricChallengeReplay); got != 1 {
		t.Fatalf("expected 1 replay metric, got %d", got)
	}
}

func TestCompleteChallengeAccumulates(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	registerAccount(t, engine, "alice", "alice@example.com")

	for _, id := range []string{"beginners", "if-else", "strings"} {
		if _, err := engine.CompleteChallenge(ctx, id); err != nil {
			t.Fatalf("CompleteChallenge(%s) failed: %v", id, err)
		}
	}

	profile, _ := engine.CurrentAccount()
	if profile.Points != 45 {
		t.Fatalf("expected 45 accumulated points, got %d", profile.Points)
	}
	if profile.ProblemsSolved != 3 {
		t.Fatalf("expected 3 solved, got %d", profile.ProblemsSolved)
	}

	done, err := engine.CompletedChallenges(ctx)
	if err != nil {
		t.Fatalf("CompletedChallenges failed: %v", err)
	}
	if len(done) != 3 {
		t.Fatalf("expected 3 completed ids, got %v", done)
	}
}

func TestIncrementProblemsSolved(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	registerAccount(t, engine, "alice", "alice@example.com")

	for i := 0; i < 12; i++ {
		if _, err := engine.IncrementProblemsSolved(ctx, 10); err != nil {
			t.Fatalf("IncrementProblemsSolved failed: %v", err)
		}
	}

	profile, _ := engine.CurrentAccount()
	if profile.ProblemsSolved != 12 || profile.Points != 120 {
		t.Fatalf("expected 12 solved / 120 points, got %d / %d", profile.ProblemsSolved, profile.Points)
	}
	// Crossing the 10-problem threshold recomputes rank in the same
	// update.
	if profile.Rank != 6 {
		t.Fatalf("expected rank 6 at 12 solved, got %d", profile.Rank)
	}
}

func TestRankProgressionThroughEngineOperations(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	profile := registerAccount(t, engine, "alice", "alice@example.com")
	if profile.Rank != 7 {
		t.Fatalf("expected rank 7 for a fresh account, got %d", profile.Rank)
	}

	// Clearing the whole catalog is 9 problems, still short of the
	// first rank threshold.
	wantPoints := 0
	for _, ch := range engine.Challenges() {
		awarded, err := engine.CompleteChallenge(ctx, ch.ID)
		if err != nil {
			t.Fatalf("CompleteChallenge(%s) failed: %v", ch.ID, err)
		}
		wantPoints += awarded
	}
	profile, _ = engine.CurrentAccount()
	if profile.ProblemsSolved != 9 || profile.Rank != 7 {
		t.Fatalf("expected 9 solved at rank 7, got %d solved at rank %d",
			profile.ProblemsSolved, profile.Rank)
	}
	if profile.Points != wantPoints {
		t.Fatalf("expected %d points, got %d", wantPoints, profile.Points)
	}

	// The tenth problem crosses into rank 6.
	profile, err := engine.IncrementProblemsSolved(ctx, 10)
	if err != nil {
		t.Fatalf("IncrementProblemsSolved failed: %v", err)
	}
	if profile.ProblemsSolved != 10 || profile.Rank != 6 {
		t.Fatalf("expected 10 solved at rank 6, got %d solved at rank %d",
			profile.ProblemsSolved, profile.Rank)
	}

	// The twentieth crosses into rank 5.
	for profile.ProblemsSolved < 20 {
		profile, err = engine.IncrementProblemsSolved(ctx, 10)
		if err != nil {
			t.Fatalf("IncrementProblemsSolved failed: %v", err)
		}
	}
	if profile.Rank != 5 {
		t.Fatalf("expected rank 5 at 20 solved, got %d", profile.Rank)
	}
	if want := wantPoints + 110; profile.Points != want {
		t.Fatalf("expected %d points, got %d", want, profile.Points)
	}
}

func TestCompleteChallengeUnknownID(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	registerAccount(t, engine, "alice", "alice@example.com")

	if _, err := engine.CompleteChallenge(ctx, "no-such-track"); !errors.Is(err, ErrUnknownChallenge) {
		t.Fatalf("expected ErrUnknownChallenge, got %v", err)
	}
}

func TestCompleteChallengeRequiresSession(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	if _, err := engine.CompleteChallenge(context.Background(), "loops"); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if _, err := engine.CompletedChallenges(context.Background()); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
}

func TestChallengeHistorySurvivesRestart(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	first := startEngine(t, rdb, nil, nil)
	registerAccount(t, first, "alice", "alice@example.com")
	if _, err := first.CompleteChallenge(ctx, "arrays"); err != nil {
		t.Fatalf("CompleteChallenge failed: %v", err)
	}
	first.Close()

	second := startEngine(t, rdb, nil, nil)
	if !second.IsSignedIn() {
		t.Fatal("expected restored session")
	}
	if awarded, err := second.CompleteChallenge(ctx, "arrays"); err != nil || awarded != 0 {
		t.Fatalf("expected idempotent completion across restarts, got %d, %v", awarded, err)
	}
	profile, _ := second.CurrentAccount()
	if profile.Points != 35 || profile.ProblemsSolved != 1 {
		t.Fatalf("expected persisted progress 35 / 1, got %d / %d", profile.Points, profile.ProblemsSolved)
	}
}
