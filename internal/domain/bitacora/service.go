package bitacora

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/bitacora/bitacora/internal/platform/auth"
)

// IdentityResolver is the read-only identity lookup surface the facade
// needs; implemented by the identity service. Absence is signalled with
// ok=false, errors mean unreachable storage.
type IdentityResolver interface {
	ResolvePatientIDByName(ctx context.Context, name string) (int64, bool, error)
	ResolvePatientIDByUser(ctx context.Context, userID int64) (int64, bool, error)
	ResolvePatientNameByID(ctx context.Context, patientID int64) (string, bool, error)
}

// TxRunner runs fn inside a storage transaction, committing on nil and
// rolling back on error.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// SearchQuery is the raw search request before strategy selection.
type SearchQuery struct {
	Month       *int
	Year        *int
	FreeText    string
	PatientName string
}

// Facade coordinates identity resolution, strategy selection, storage,
// decoration and notification behind the four public operations.
type Facade struct {
	entries  EntryRepository
	resolver IdentityResolver
	chain    *Chain
	notifier *Notifier
	txRun    TxRunner
	logger   zerolog.Logger
}

func NewFacade(entries EntryRepository, resolver IdentityResolver, chain *Chain,
	notifier *Notifier, txRun TxRunner, logger zerolog.Logger) *Facade {
	return &Facade{
		entries:  entries,
		resolver: resolver,
		chain:    chain,
		notifier: notifier,
		txRun:    txRun,
		logger:   logger,
	}
}

// scopeForRead resolves the effective patient restriction for a read. For
// standard callers the restriction is always their own linked patient; any
// client-supplied name is display-only and ignored. For admins a supplied
// name restricts to that patient, and no name means no restriction. The
// second return is false when the scope resolves to nothing visible.
func (f *Facade) scopeForRead(ctx context.Context, sess auth.Session, patientName string) (*int64, bool, error) {
	if !sess.IsAdmin() {
		pid, ok, err := f.resolver.ResolvePatientIDByUser(ctx, sess.UserID)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		return &pid, true, nil
	}

	if strings.TrimSpace(patientName) == "" {
		return nil, true, nil
	}
	pid, ok, err := f.resolver.ResolvePatientIDByName(ctx, patientName)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &pid, true, nil
}

// Search never fails: identity or storage trouble degrades to an empty
// decorated result.
func (f *Facade) Search(ctx context.Context, q SearchQuery, sess auth.Session) *Result {
	scope, visible, err := f.scopeForRead(ctx, sess, q.PatientName)
	if err != nil {
		f.logger.Warn().Err(err).Msg("search: identity resolution failed")
		return f.chain.Run(nil)
	}
	if !visible {
		return f.chain.Run(nil)
	}

	params := SearchParams{
		Month:     q.Month,
		Year:      q.Year,
		FreeText:  strings.TrimSpace(q.FreeText),
		PatientID: scope,
	}
	kind := SelectStrategy(params)

	rows, err := f.entries.Search(ctx, kind, params)
	if err != nil {
		f.logger.Warn().Err(err).Str("strategy", kind.String()).Msg("search: storage failure, returning empty result")
		rows = nil
	}
	return f.chain.Run(rows)
}

// GetByID returns a single formatted entry. A standard caller asking for
// another patient's entry gets not-found, never forbidden.
func (f *Facade) GetByID(ctx context.Context, id int64, sess auth.Session) (*Entry, error) {
	if id <= 0 {
		return nil, inputErr("id inválido")
	}

	entry, err := f.entries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundErr()
		}
		return nil, storageErr(err)
	}

	if !sess.IsAdmin() {
		pid, ok, err := f.resolver.ResolvePatientIDByUser(ctx, sess.UserID)
		if err != nil {
			return nil, storageErr(err)
		}
		if !ok || entry.PatientID != pid {
			return nil, notFoundErr()
		}
	}

	formatted := FormatDates([]Entry{*entry})
	return &formatted[0], nil
}

// Upsert validates and resolves everything before the first storage write,
// commits the mutation in one transaction, then fires Created or Updated.
func (f *Facade) Upsert(ctx context.Context, in Input, sess auth.Session) (int64, error) {
	if strings.TrimSpace(in.Fecha) == "" {
		return 0, inputErr("fecha es obligatoria")
	}

	write, err := parseInput(in)
	if err != nil {
		return 0, err
	}

	pid, err := f.scopeForWrite(ctx, sess, in.Paciente)
	if err != nil {
		return 0, err
	}
	write.PatientID = pid

	kind := EventCreated
	if write.ID > 0 {
		kind = EventUpdated
	}

	err = f.txRun(ctx, func(ctx context.Context) error {
		if write.ID > 0 {
			existing, err := f.entries.GetByID(ctx, write.ID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return notFoundErr()
				}
				return storageErr(err)
			}
			if !sess.IsAdmin() && existing.PatientID != pid {
				return notFoundErr()
			}
			if err := f.entries.Update(ctx, write); err != nil {
				return storageErr(err)
			}
			return nil
		}

		id, err := f.entries.Insert(ctx, write)
		if err != nil {
			return storageErr(err)
		}
		write.ID = id
		return nil
	})
	if err != nil {
		return 0, err
	}

	f.notifier.Notify(ctx, Event{
		Kind:      kind,
		EntryID:   write.ID,
		PatientID: pid,
		ActorID:   sess.UserID,
		Payload:   map[string]interface{}{"fecha": write.Fecha},
	})
	return write.ID, nil
}

// Delete enforces the same ownership scoping as GetByID, commits, then
// fires Deleted.
func (f *Facade) Delete(ctx context.Context, id int64, sess auth.Session) error {
	if id <= 0 {
		return inputErr("id inválido")
	}

	var patientID int64
	err := f.txRun(ctx, func(ctx context.Context) error {
		entry, err := f.entries.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFoundErr()
			}
			return storageErr(err)
		}
		if !sess.IsAdmin() {
			pid, ok, err := f.resolver.ResolvePatientIDByUser(ctx, sess.UserID)
			if err != nil {
				return storageErr(err)
			}
			if !ok || entry.PatientID != pid {
				return notFoundErr()
			}
		}
		patientID = entry.PatientID
		if err := f.entries.Delete(ctx, id); err != nil {
			return storageErr(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	f.notifier.Notify(ctx, Event{
		Kind:      EventDeleted,
		EntryID:   id,
		PatientID: patientID,
		ActorID:   sess.UserID,
	})
	return nil
}

// scopeForWrite resolves the patient a mutation applies to. Standard
// callers always write to their own linked patient; a client-supplied name
// is ignored for scoping. Admins must name the patient, and the name must
// resolve, before any write happens.
func (f *Facade) scopeForWrite(ctx context.Context, sess auth.Session, patientName string) (int64, error) {
	if !sess.IsAdmin() {
		pid, ok, err := f.resolver.ResolvePatientIDByUser(ctx, sess.UserID)
		if err != nil {
			return 0, storageErr(err)
		}
		if !ok {
			return 0, inputErr("paciente no encontrado")
		}
		return pid, nil
	}

	if strings.TrimSpace(patientName) == "" {
		return 0, inputErr("paciente es obligatorio")
	}
	pid, ok, err := f.resolver.ResolvePatientIDByName(ctx, patientName)
	if err != nil {
		return 0, storageErr(err)
	}
	if !ok {
		return 0, inputErr("paciente no encontrado")
	}
	return pid, nil
}

// parseInput converts the raw payload to its typed form. Numeric fields
// parse as floats or stay absent; an empty string becomes nil, never zero.
func parseInput(in Input) (*EntryWrite, error) {
	w := &EntryWrite{Fecha: strings.TrimSpace(in.Fecha)}

	if strings.TrimSpace(in.ID) != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(in.ID), 10, 64)
		if err != nil || id <= 0 {
			return nil, inputErr("id inválido")
		}
		w.ID = id
	}

	w.HoraInicio = optStr(in.HoraInicio)
	w.HoraFin = optStr(in.HoraFin)
	w.PresionArterial = optStr(in.PresionArterial)

	numeric := []struct {
		name  string
		raw   string
		field **float64
	}{
		{"drenajeInicial", in.DrenajeInicial, &w.DrenajeInicial},
		{"ufTotal", in.UFTotal, &w.UFTotal},
		{"tiempoMedioPerm", in.TiempoMedioPerm, &w.TiempoMedioPerm},
		{"liquidoIngerido", in.LiquidoIngerido, &w.LiquidoIngerido},
		{"cantidadOrina", in.CantidadOrina, &w.CantidadOrina},
		{"glucosa", in.Glucosa, &w.Glucosa},
	}
	for _, n := range numeric {
		raw := strings.TrimSpace(n.raw)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, inputErr("el campo %s debe ser numérico", n.name)
		}
		*n.field = &v
	}

	return w, nil
}

func optStr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
