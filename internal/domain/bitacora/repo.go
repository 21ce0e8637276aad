package bitacora

import "context"

// EntryRepository persists bitacora rows. Search shapes its query from the
// strategy kind; mutations participate in the caller's transaction when one
// is on the context.
type EntryRepository interface {
	// Search expects kind to come from SelectStrategy, which only yields
	// ByMonth or ByMonthAndText when params.Month is set; a month kind with
	// a nil month degrades to no month filter rather than panicking.
	Search(ctx context.Context, kind StrategyKind, params SearchParams) ([]Entry, error)
	GetByID(ctx context.Context, id int64) (*Entry, error)
	Insert(ctx context.Context, w *EntryWrite) (int64, error)
	Update(ctx context.Context, w *EntryWrite) error
	Delete(ctx context.Context, id int64) error
}
