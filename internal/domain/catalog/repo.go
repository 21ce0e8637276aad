package catalog

import "context"

// Repository is the catalog storage surface. Not-found is pgx.ErrNoRows.
type Repository interface {
	Search(ctx context.Context, term string) ([]Product, error)
	NamesByCategory(ctx context.Context, category string) ([]string, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Ingredients(ctx context.Context, productID int64) ([]Ingredient, error)
	Insert(ctx context.Context, p *Product) (int64, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
}
