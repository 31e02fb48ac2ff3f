package service

import (
	"context"
	"errors"
	"sync"

	"github.com/digital-card-api/internal/repository"
	"github.com/digital-card-api/internal/slug"
)

// maxAllocAttempts bounds retries after the store reports a slug collision
const maxAllocAttempts = 3

// fallbackSlug is used when a name contains nothing sluggable
const fallbackSlug = "card"

// SlugAllocator serializes "read existing slugs, resolve, persist" so that two
// writers in this process never resolve against the same snapshot. The unique
// slug index catches writers in other processes; those collisions are retried.
type SlugAllocator struct {
	mu    sync.Mutex
	cards repository.CardRepository
}

// NewSlugAllocator creates an allocator over the card store
func NewSlugAllocator(cards repository.CardRepository) *SlugAllocator {
	return &SlugAllocator{cards: cards}
}

// Allocate calls fn with a fresh set of taken slugs while holding the lock.
// fn must persist whatever it resolves before returning. When fn returns
// repository.ErrSlugTaken it is called again with a new snapshot.
func (a *SlugAllocator) Allocate(ctx context.Context, fn func(taken slug.Set) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var err error
	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		existing, listErr := a.cards.ListAllSlugs(ctx)
		if listErr != nil {
			return &PersistenceError{Op: "list slugs", Err: listErr}
		}

		err = fn(slug.NewSet(existing...))
		if !errors.Is(err, repository.ErrSlugTaken) {
			return err
		}
	}
	return err
}

// Exclusive runs fn while holding the allocation lock, for writers that
// check a single slug themselves instead of resolving one.
func (a *SlugAllocator) Exclusive(fn func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn()
}

// baseSlug derives the unresolved slug for a card name
func baseSlug(name string) string {
	if base := slug.Make(name); base != "" {
		return base
	}
	return fallbackSlug
}
