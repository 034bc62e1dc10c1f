package server

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var errNoCards = errors.New("no cards available")

// insufficientCardsError reports a draw request larger than the remaining
// pool, citing what is actually left.
type insufficientCardsError struct {
	available int
	requested int
}

func (e insufficientCardsError) Error() string {
	return fmt.Sprintf("only %d cards available, but %d requested", e.available, e.requested)
}

// cardSource supplies the card pool the catalog samples from. A nil genre
// filter means every genre. Implemented over gorm and, for tests and
// database-less runs, an in-memory table.
type cardSource interface {
	CardsMatching(genreIDs []string, excludeIDs []string) ([]CardView, error)
	Genres() ([]GenreView, error)
}

// catalog draws uniform random samples of non-excluded cards.
type catalog struct {
	source cardSource
}

func newCatalog(source cardSource) *catalog {
	return &catalog{source: source}
}

// Draw returns count distinct cards matching the genre filters, never one
// whose id is excluded. The sentinel genre ("random", with "all" accepted
// as an alias) bypasses genre filtering but exclusions still apply.
func (c *catalog) Draw(genreIDs []string, count int, excludeIDs []string) ([]CardView, error) {
	filters := genreIDs
	for _, id := range genreIDs {
		if id == genreRandom || id == genreAll {
			filters = nil
			break
		}
	}
	pool, err := c.source.CardsMatching(filters, excludeIDs)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, errNoCards
	}
	if len(pool) < count {
		return nil, insufficientCardsError{available: len(pool), requested: count}
	}
	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool[:count], nil
}

func (c *catalog) Genres() ([]GenreView, error) {
	return c.source.Genres()
}
