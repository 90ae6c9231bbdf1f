package storage

import (
	"context"
	"errors"

	"credit-card-scraper/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("unique constraint violation")
)

// CardStore is the interface any card persistence backend must satisfy.
type CardStore interface {
	FindBySourceURL(ctx context.Context, sourceURL string) (*models.CardRow, error)
	FindByName(ctx context.Context, name string) (*models.CardRow, error)

	FindBankByName(ctx context.Context, name string) (*models.Bank, error)
	CreateBank(ctx context.Context, bank *models.Bank) error

	// Get and List return cards with every relation loaded.
	Get(ctx context.Context, id string) (*models.CreditCardRecord, error)
	List(ctx context.Context) ([]*models.CreditCardRecord, error)

	// Create inserts the card and all children in one transaction and
	// returns the new card id.
	Create(ctx context.Context, rec *models.CreditCardRecord) (string, error)
	// Update replaces the card's values and child collections in one transaction.
	Update(ctx context.Context, upd *models.CardUpdate) error

	SetEmbedding(ctx context.Context, id string, embedding []float32) error
	Close() error
}

// DocumentArchive keeps the raw scrape output before extraction.
type DocumentArchive interface {
	WriteDocument(doc *models.CardDocument) error
	Close() error
}
