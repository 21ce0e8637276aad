package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/bitacora/bitacora/internal/platform/auth"
)

// ErrInvalidCredentials is returned by Authenticate for a bad name/password
// pair; it is deliberately indistinguishable between the two.
var ErrInvalidCredentials = errors.New("usuario o contraseña incorrectos")

type Service struct {
	users    UserRepository
	patients PatientRepository
}

func NewService(users UserRepository, patients PatientRepository) *Service {
	return &Service{users: users, patients: patients}
}

// Authenticate checks a name/password pair against the stored bcrypt hash.
func (s *Service) Authenticate(ctx context.Context, name, password string) (*User, error) {
	u, err := s.users.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// SessionFor builds the caller identity handed to the domain facades.
func (s *Service) SessionFor(u *User) auth.Session {
	return auth.Session{
		UserID: u.ID,
		Name:   u.Name,
		Role:   auth.RoleFromCode(u.RoleCode),
	}
}

// -- User management (admin only, enforced at the route level) --

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.users.List(ctx)
}

func (s *Service) CreateUser(ctx context.Context, name, password, roleCode string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("nombre is required")
	}
	if password == "" {
		return nil, fmt.Errorf("contrasena is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{Name: name, PasswordHash: string(hash), RoleCode: roleCode}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser edits name and role; password is rehashed only when a new one
// is supplied.
func (s *Service) UpdateUser(ctx context.Context, id int64, name, password, roleCode string) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		u.Name = name
	}
	if roleCode != "" {
		u.RoleCode = roleCode
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.users.Delete(ctx, id)
}

// -- Identity resolver --
//
// All three lookups are pure reads. Not-found is an absence signal (ok =
// false), never an error; errors are reserved for unreachable storage.

// ResolvePatientIDByName tries an exact case-insensitive, trimmed match
// first, then falls back to the first case-insensitive substring match.
// Among multiple substring matches the lowest patient id wins, which makes
// ties deterministic for a given database but remains a known limitation of
// partial-name resolution rather than real disambiguation.
func (s *Service) ResolvePatientIDByName(ctx context.Context, name string) (int64, bool, error) {
	if strings.TrimSpace(name) == "" {
		return 0, false, nil
	}
	p, err := s.patients.GetByExactName(ctx, name)
	if err == nil {
		return p.ID, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("resolve patient by name: %w", err)
	}
	p, err = s.patients.FirstBySubstring(ctx, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("resolve patient by name: %w", err)
	}
	return p.ID, true, nil
}

// ResolvePatientIDByUser returns the patient linked to a standard user.
func (s *Service) ResolvePatientIDByUser(ctx context.Context, userID int64) (int64, bool, error) {
	p, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("resolve patient by user: %w", err)
	}
	return p.ID, true, nil
}

// ResolvePatientNameByID returns the display name for a patient id.
func (s *Service) ResolvePatientNameByID(ctx context.Context, patientID int64) (string, bool, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolve patient name: %w", err)
	}
	return p.FullName, true, nil
}

func (s *Service) ListPatients(ctx context.Context) ([]*Patient, error) {
	return s.patients.List(ctx)
}
