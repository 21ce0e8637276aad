package identity

import "context"

// UserRepository persists usuario rows. Not-found is reported as pgx.ErrNoRows
// by the pg implementation; the service layer translates it.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByName(ctx context.Context, name string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
}

// PatientRepository persists pacientes rows and backs the identity resolver.
type PatientRepository interface {
	GetByID(ctx context.Context, id int64) (*Patient, error)
	GetByUserID(ctx context.Context, userID int64) (*Patient, error)
	// GetByExactName matches nombreCompleto case-insensitively after trimming.
	GetByExactName(ctx context.Context, name string) (*Patient, error)
	// FirstBySubstring returns the lowest-id patient whose name contains the
	// fragment, case-insensitively.
	FirstBySubstring(ctx context.Context, fragment string) (*Patient, error)
	List(ctx context.Context) ([]*Patient, error)
}
