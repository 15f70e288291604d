package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-dogbreeds/internal/domain"
)

func TestUpsertBreeds_EmptyIsNoop(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if err := UpsertBreeds(context.Background(), db, nil); err != nil {
		t.Fatalf("empty upsert must not touch the db: %v", err)
	}
}

func TestUpsertBreeds_ReplacesWholeRow(t *testing.T) {
	db := newTestDB(t, &domain.Breed{}, &domain.Favorite{})
	ctx := context.Background()

	first := domain.Breed{ID: 3, Name: "Akita", Temperament: "Docile", Weight: "29 - 52", CachedAt: time.Now().UTC()}
	if err := UpsertBreeds(ctx, db, []domain.Breed{first}); err != nil {
		t.Fatalf("UpsertBreeds: %v", err)
	}
	second := domain.Breed{ID: 3, Name: "Akita Inu", CachedAt: time.Now().UTC()}
	if err := UpsertBreeds(ctx, db, []domain.Breed{second}); err != nil {
		t.Fatalf("UpsertBreeds replace: %v", err)
	}

	got, err := GetBreed(ctx, db, 3)
	if err != nil {
		t.Fatalf("GetBreed: %v", err)
	}
	if got.Name != "Akita Inu" || got.Temperament != "" || got.Weight != "" {
		t.Fatalf("expected full replacement, got %+v", got.Breed)
	}
	if n, _ := CountBreeds(ctx, db); n != 1 {
		t.Fatalf("expected one row, got %d", n)
	}
}

func TestGetBreed_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.Breed{}, &domain.Favorite{})
	if _, err := GetBreed(context.Background(), db, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetBreed_FavoriteFlag(t *testing.T) {
	db := newTestDB(t, &domain.Breed{}, &domain.Favorite{})
	ctx := context.Background()

	if err := UpsertBreeds(ctx, db, []domain.Breed{{ID: 1, Name: "Beagle"}, {ID: 2, Name: "Boxer"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := UpsertFavorite(ctx, db, &domain.Favorite{ID: 2, Name: "Boxer"}); err != nil {
		t.Fatalf("seed favorite: %v", err)
	}

	b1, err := GetBreed(ctx, db, 1)
	if err != nil || b1.IsFavorite {
		t.Fatalf("breed 1: fav=%v err=%v; want false", b1 != nil && b1.IsFavorite, err)
	}
	b2, err := GetBreed(ctx, db, 2)
	if err != nil || !b2.IsFavorite || b2.Name != "Boxer" {
		t.Fatalf("breed 2: %+v err=%v; want favorite Boxer", b2, err)
	}
}

func TestListBreedsPage_OrderAndWindow(t *testing.T) {
	db := newTestDB(t, &domain.Breed{}, &domain.Favorite{})
	ctx := context.Background()

	seed := []domain.Breed{
		{ID: 5, Name: "Collie"},
		{ID: 1, Name: "Akita"},
		{ID: 4, Name: "Boxer"},
		{ID: 2, Name: "Boxer"}, // same name: id breaks the tie
		{ID: 3, Name: "Dingo"},
	}
	if err := UpsertBreeds(ctx, db, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := UpsertFavorite(ctx, db, &domain.Favorite{ID: 4, Name: "Boxer"}); err != nil {
		t.Fatalf("seed favorite: %v", err)
	}

	all, err := ListBreedsPage(ctx, db, 0, 10)
	if err != nil {
		t.Fatalf("ListBreedsPage: %v", err)
	}
	wantIDs := []int{1, 2, 4, 5, 3}
	if len(all) != len(wantIDs) {
		t.Fatalf("expected %d rows, got %d", len(wantIDs), len(all))
	}
	for i, id := range wantIDs {
		if all[i].ID != id {
			t.Fatalf("row %d: id=%d want %d", i, all[i].ID, id)
		}
		if all[i].IsFavorite != (id == 4) {
			t.Fatalf("row %d: is_favorite=%v", i, all[i].IsFavorite)
		}
	}

	win, err := ListBreedsPage(ctx, db, 2, 2)
	if err != nil {
		t.Fatalf("ListBreedsPage window: %v", err)
	}
	if len(win) != 2 || win[0].ID != 4 || win[1].ID != 5 {
		t.Fatalf("unexpected window: %+v", win)
	}

	past, err := ListBreedsPage(ctx, db, 50, 10)
	if err != nil || len(past) != 0 {
		t.Fatalf("expected empty slice past end, got %d rows err=%v", len(past), err)
	}
}

func TestClearBreeds_KeepsFavorites(t *testing.T) {
	db := newTestDB(t, &domain.Breed{}, &domain.Favorite{})
	ctx := context.Background()

	if err := UpsertBreeds(ctx, db, []domain.Breed{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := UpsertFavorite(ctx, db, &domain.Favorite{ID: 1, Name: "A"}); err != nil {
		t.Fatalf("seed favorite: %v", err)
	}
	if err := ClearBreeds(ctx, db); err != nil {
		t.Fatalf("ClearBreeds: %v", err)
	}
	if n, _ := CountBreeds(ctx, db); n != 0 {
		t.Fatalf("expected no breeds, got %d", n)
	}
	if n, _ := CountFavorites(ctx, db); n != 1 {
		t.Fatalf("expected favorite to survive, got %d", n)
	}
}

func TestAllBreeds_Ordered(t *testing.T) {
	db := newTestDB(t, &domain.Breed{})
	ctx := context.Background()

	if err := UpsertBreeds(ctx, db, []domain.Breed{{ID: 2, Name: "Saluki"}, {ID: 1, Name: "Papillon"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	all, err := AllBreeds(ctx, db)
	if err != nil {
		t.Fatalf("AllBreeds: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Papillon" || all[1].Name != "Saluki" {
		t.Fatalf("unexpected order: %+v", all)
	}
}
