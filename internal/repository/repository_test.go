package repository

import (
	"errors"
	"fmt"
	"testing"

	"solana-token-sniper/internal/domain"
)

func pair(mint string) *domain.TradingPair {
	return &domain.TradingPair{Mint: mint, BaseToken: "TT", QuoteToken: "SOL"}
}

func TestRepository_InsertAndGet(t *testing.T) {
	repo := New(10)

	if err := repo.Insert(pair("mint1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := repo.Get("mint1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Mint != "mint1" {
		t.Errorf("Mint mismatch: got %s", got.Mint)
	}

	// Returned copies must not alias the stored pair.
	got.Name = "mutated"
	again, _ := repo.Get("mint1")
	if again.Name == "mutated" {
		t.Error("Get must return a deep copy")
	}
}

func TestRepository_Duplicate(t *testing.T) {
	repo := New(10)

	if err := repo.Insert(pair("mint1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := repo.Insert(pair("mint1")); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestRepository_CapacityEviction(t *testing.T) {
	repo := New(3)

	for i := 1; i <= 4; i++ {
		if err := repo.Insert(pair(fmt.Sprintf("mint%d", i))); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	if repo.Len() != 3 {
		t.Fatalf("Len mismatch: got %d, want 3", repo.Len())
	}

	// mint1 was oldest and must be gone; mint4 is the newest.
	if _, err := repo.Get("mint1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("oldest pair should be evicted, got %v", err)
	}
	if _, err := repo.Get("mint4"); err != nil {
		t.Errorf("newest pair should be present: %v", err)
	}

	list := repo.List(Filter{}, SortByRecency)
	if len(list) != 3 || list[0].Mint != "mint4" || list[2].Mint != "mint2" {
		t.Errorf("recency order wrong: %v", mints(list))
	}
}

func TestRepository_PauseDropsMutations(t *testing.T) {
	repo := New(10)
	repo.Insert(pair("mint1"))

	repo.Pause()

	if err := repo.Insert(pair("mint2")); !errors.Is(err, ErrPaused) {
		t.Errorf("Insert while paused: expected ErrPaused, got %v", err)
	}
	if err := repo.Update("mint1", func(p *domain.TradingPair) { p.Name = "x" }); !errors.Is(err, ErrPaused) {
		t.Errorf("Update while paused: expected ErrPaused, got %v", err)
	}

	// Reads stay available while paused.
	if _, err := repo.Get("mint1"); err != nil {
		t.Errorf("Get while paused failed: %v", err)
	}
	if got := repo.List(Filter{}, SortByRecency); len(got) != 1 {
		t.Errorf("List while paused: got %d pairs", len(got))
	}

	repo.Resume()

	// Dropped mutations are not replayed after resume.
	if _, err := repo.Get("mint2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("paused insert must be dropped, not queued: %v", err)
	}
	if err := repo.Insert(pair("mint2")); err != nil {
		t.Errorf("Insert after resume failed: %v", err)
	}
}

func TestRepository_DialogLatch(t *testing.T) {
	repo := New(10)

	repo.DialogOpened()
	if !repo.Paused() {
		t.Fatal("dialog must pause the repository")
	}

	// Resume is refused while the dialog latch is held.
	repo.Resume()
	if !repo.Paused() {
		t.Error("Resume must not clear the dialog latch")
	}

	// Hover pause/unpause during a dialog must not release it either.
	repo.Pause()
	repo.Resume()
	if !repo.Paused() {
		t.Error("hover events must not clear the dialog latch")
	}

	repo.DialogClosed()
	if repo.Paused() {
		t.Error("DialogClosed must resume")
	}
}

func TestRepository_DialogClosedWithoutDialog(t *testing.T) {
	repo := New(10)

	repo.Pause()
	repo.DialogClosed()
	if !repo.Paused() {
		t.Error("DialogClosed must not clear a hover pause")
	}
}

func mints(pairs []*domain.TradingPair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Mint
	}
	return out
}
