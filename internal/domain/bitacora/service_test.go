package bitacora

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/bitacora/bitacora/internal/platform/auth"
)

// -- Mock Entry Repository --

type mockEntryRepo struct {
	entries map[int64]*Entry
	nextID  int64

	searchErr   error
	searchCalls int
	insertCalls int
	updateCalls int
	deleteCalls int
}

func newMockEntryRepo() *mockEntryRepo {
	return &mockEntryRepo{entries: make(map[int64]*Entry), nextID: 1}
}

func (m *mockEntryRepo) Search(_ context.Context, kind StrategyKind, params SearchParams) ([]Entry, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}

	var out []Entry
	for _, e := range m.entries {
		if params.PatientID != nil && e.PatientID != *params.PatientID {
			continue
		}
		if kind == ByMonth || kind == ByMonthAndText {
			if !matchesMonth(e.Fecha, params) {
				continue
			}
		}
		if (kind == ByText || kind == ByMonthAndText) && params.FreeText != "" {
			if !matchesText(e, params.FreeText) {
				continue
			}
		}
		out = append(out, *e)
	}
	return out, nil
}

func matchesMonth(fecha string, params SearchParams) bool {
	parts := strings.Split(fecha, "-")
	if len(parts) != 3 {
		return false
	}
	month, _ := strconv.Atoi(parts[1])
	if month != *params.Month {
		return false
	}
	if params.Year != nil {
		year, _ := strconv.Atoi(parts[0])
		if year != *params.Year {
			return false
		}
	}
	return true
}

func matchesText(e *Entry, text string) bool {
	if strings.Contains(fmt.Sprintf("%d", e.ID), text) || strings.Contains(e.Fecha, text) {
		return true
	}
	return e.Glucosa != nil && strings.Contains(*e.Glucosa, text)
}

func (m *mockEntryRepo) GetByID(_ context.Context, id int64) (*Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *mockEntryRepo) Insert(_ context.Context, w *EntryWrite) (int64, error) {
	m.insertCalls++
	id := m.nextID
	m.nextID++
	m.entries[id] = entryFromWrite(id, w)
	return id, nil
}

func (m *mockEntryRepo) Update(_ context.Context, w *EntryWrite) error {
	m.updateCalls++
	m.entries[w.ID] = entryFromWrite(w.ID, w)
	return nil
}

func (m *mockEntryRepo) Delete(_ context.Context, id int64) error {
	m.deleteCalls++
	delete(m.entries, id)
	return nil
}

func entryFromWrite(id int64, w *EntryWrite) *Entry {
	fs := func(v *float64) *string {
		if v == nil {
			return nil
		}
		s := strconv.FormatFloat(*v, 'f', -1, 64)
		return &s
	}
	return &Entry{
		ID:              id,
		PatientID:       w.PatientID,
		Fecha:           w.Fecha,
		HoraInicio:      w.HoraInicio,
		HoraFin:         w.HoraFin,
		DrenajeInicial:  fs(w.DrenajeInicial),
		UFTotal:         fs(w.UFTotal),
		TiempoMedioPerm: fs(w.TiempoMedioPerm),
		LiquidoIngerido: fs(w.LiquidoIngerido),
		CantidadOrina:   fs(w.CantidadOrina),
		Glucosa:         fs(w.Glucosa),
		PresionArterial: w.PresionArterial,
	}
}

// -- Mock Identity Resolver --

type mockResolver struct {
	nameToID map[string]int64
	userToID map[int64]int64
	idToName map[int64]string
	err      error
}

func newMockResolver() *mockResolver {
	return &mockResolver{
		nameToID: make(map[string]int64),
		userToID: make(map[int64]int64),
		idToName: make(map[int64]string),
	}
}

func (m *mockResolver) ResolvePatientIDByName(_ context.Context, name string) (int64, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	id, ok := m.nameToID[name]
	return id, ok, nil
}

func (m *mockResolver) ResolvePatientIDByUser(_ context.Context, userID int64) (int64, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	id, ok := m.userToID[userID]
	return id, ok, nil
}

func (m *mockResolver) ResolvePatientNameByID(_ context.Context, patientID int64) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	name, ok := m.idToName[patientID]
	return name, ok, nil
}

// -- Fixtures --

var (
	adminSess    = auth.Session{UserID: 1, Name: "admin", Role: auth.RoleAdmin}
	standardSess = auth.Session{UserID: 2, Name: "juan", Role: auth.RoleStandard}
)

func newTestFacade(repo *mockEntryRepo, resolver *mockResolver, listeners ...Listener) *Facade {
	txRun := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
	return NewFacade(repo, resolver, NewChain(zerolog.Nop()),
		NewNotifier(zerolog.Nop(), listeners...), txRun, zerolog.Nop())
}

func seedEntry(repo *mockEntryRepo, patientID int64, fecha string) int64 {
	id := repo.nextID
	repo.nextID++
	repo.entries[id] = &Entry{ID: id, PatientID: patientID, Fecha: fecha}
	return id
}

// -- Search --

func TestSearchStandardScopedToOwnPatient(t *testing.T) {
	repo := newMockEntryRepo()
	seedEntry(repo, 10, "2025-01-05")
	seedEntry(repo, 99, "2025-01-06")

	resolver := newMockResolver()
	resolver.userToID[standardSess.UserID] = 10

	f := newTestFacade(repo, resolver)
	res := f.Search(context.Background(), SearchQuery{}, standardSess)

	if res.Total != 1 {
		t.Fatalf("Total = %d, want 1", res.Total)
	}
	if res.Registros[0].PatientID != 10 {
		t.Errorf("leaked entry for patient %d", res.Registros[0].PatientID)
	}
}

func TestSearchStandardIgnoresPatientParam(t *testing.T) {
	repo := newMockEntryRepo()
	seedEntry(repo, 10, "2025-01-05")
	seedEntry(repo, 99, "2025-01-06")

	resolver := newMockResolver()
	resolver.userToID[standardSess.UserID] = 10
	resolver.nameToID["Otro Paciente"] = 99

	f := newTestFacade(repo, resolver)
	res := f.Search(context.Background(), SearchQuery{PatientName: "Otro Paciente"}, standardSess)

	if res.Total != 1 || res.Registros[0].PatientID != 10 {
		t.Errorf("standard caller escaped own patient scope: %+v", res.Registros)
	}
}

func TestSearchStandardWithoutPatientLink(t *testing.T) {
	repo := newMockEntryRepo()
	seedEntry(repo, 10, "2025-01-05")

	f := newTestFacade(repo, newMockResolver())
	res := f.Search(context.Background(), SearchQuery{}, standardSess)

	if res.Total != 0 {
		t.Errorf("unlinked caller saw %d entries", res.Total)
	}
	if repo.searchCalls != 0 {
		t.Errorf("storage was queried for an unlinked caller")
	}
}

func TestSearchAdminSpansAllPatients(t *testing.T) {
	repo := newMockEntryRepo()
	seedEntry(repo, 10, "2025-01-05")
	seedEntry(repo, 99, "2025-01-06")

	f := newTestFacade(repo, newMockResolver())
	res := f.Search(context.Background(), SearchQuery{}, adminSess)

	if res.Total != 2 {
		t.Errorf("Total = %d, want 2", res.Total)
	}
}

func TestSearchAdminPatientFilter(t *testing.T) {
	repo := newMockEntryRepo()
	seedEntry(repo, 10, "2025-01-05")
	seedEntry(repo, 99, "2025-01-06")

	resolver := newMockResolver()
	resolver.nameToID["Juan Perez"] = 10

	f := newTestFacade(repo, resolver)
	res := f.Search(context.Background(), SearchQuery{PatientName: "Juan Perez"}, adminSess)

	if res.Total != 1 || res.Registros[0].PatientID != 10 {
		t.Errorf("admin filter not applied: %+v", res.Registros)
	}
}

func TestSearchAdminUnknownPatientFilter(t *testing.T) {
	repo := newMockEntryRepo()
	seedEntry(repo, 10, "2025-01-05")

	f := newTestFacade(repo, newMockResolver())
	res := f.Search(context.Background(), SearchQuery{PatientName: "Nadie"}, adminSess)

	if res.Total != 0 {
		t.Errorf("unknown patient filter returned %d entries", res.Total)
	}
	if repo.searchCalls != 0 {
		t.Errorf("storage was queried for an unresolvable filter")
	}
}

func TestSearchStorageErrorDegradesToEmpty(t *testing.T) {
	repo := newMockEntryRepo()
	repo.searchErr = errors.New("connection refused")

	f := newTestFacade(repo, newMockResolver())
	res := f.Search(context.Background(), SearchQuery{}, adminSess)

	if res == nil || res.Total != 0 || res.Registros == nil {
		t.Errorf("storage failure must degrade to an empty result, got %+v", res)
	}
}

func TestSearchMonthSpansYears(t *testing.T) {
	repo := newMockEntryRepo()
	seedEntry(repo, 10, "2024-01-15")
	seedEntry(repo, 10, "2025-01-20")
	seedEntry(repo, 10, "2025-02-01")

	month := 1
	f := newTestFacade(repo, newMockResolver())
	res := f.Search(context.Background(), SearchQuery{Month: &month}, adminSess)

	if res.Total != 2 {
		t.Errorf("month filter across years: Total = %d, want 2", res.Total)
	}
}

func TestSearchMonthNarrowedByYear(t *testing.T) {
	repo := newMockEntryRepo()
	seedEntry(repo, 10, "2024-01-15")
	seedEntry(repo, 10, "2025-01-20")

	month, year := 1, 2025
	f := newTestFacade(repo, newMockResolver())
	res := f.Search(context.Background(), SearchQuery{Month: &month, Year: &year}, adminSess)

	if res.Total != 1 || res.Registros[0].Fecha != "2025-01-20" {
		t.Errorf("year narrowing failed: %+v", res.Registros)
	}
}

// -- GetByID --

func TestGetByIDFormatsDates(t *testing.T) {
	repo := newMockEntryRepo()
	id := seedEntry(repo, 10, "2025-03-15")

	f := newTestFacade(repo, newMockResolver())
	e, err := f.GetByID(context.Background(), id, adminSess)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if e.FechaFmt != "15/03/2025" {
		t.Errorf("FechaFmt = %q", e.FechaFmt)
	}
}

func TestGetByIDOtherPatientLooksMissing(t *testing.T) {
	repo := newMockEntryRepo()
	id := seedEntry(repo, 99, "2025-03-15")

	resolver := newMockResolver()
	resolver.userToID[standardSess.UserID] = 10

	f := newTestFacade(repo, resolver)
	_, err := f.GetByID(context.Background(), id, standardSess)
	if KindOf(err) != KindNotFound {
		t.Errorf("expected not-found for another patient's entry, got %v", err)
	}
}

func TestGetByIDMissing(t *testing.T) {
	f := newTestFacade(newMockEntryRepo(), newMockResolver())
	_, err := f.GetByID(context.Background(), 42, adminSess)
	if KindOf(err) != KindNotFound {
		t.Errorf("expected not-found, got %v", err)
	}
}

// -- Upsert --

func TestUpsertRequiresFecha(t *testing.T) {
	repo := newMockEntryRepo()
	f := newTestFacade(repo, newMockResolver())

	_, err := f.Upsert(context.Background(), Input{Glucosa: "120"}, adminSess)
	if KindOf(err) != KindInput {
		t.Fatalf("expected input error, got %v", err)
	}
	if repo.insertCalls != 0 {
		t.Errorf("storage written despite missing fecha")
	}
}

func TestUpsertRejectsUnparseableNumeric(t *testing.T) {
	repo := newMockEntryRepo()
	resolver := newMockResolver()
	resolver.nameToID["Juan Perez"] = 10

	f := newTestFacade(repo, resolver)
	_, err := f.Upsert(context.Background(), Input{
		Fecha:    "2025-03-15",
		Paciente: "Juan Perez",
		Glucosa:  "ciento veinte",
	}, adminSess)

	if KindOf(err) != KindInput {
		t.Fatalf("expected input error, got %v", err)
	}
	if repo.insertCalls != 0 {
		t.Errorf("storage written despite invalid numeric")
	}
}

func TestUpsertEmptyNumericStoredAbsent(t *testing.T) {
	repo := newMockEntryRepo()
	resolver := newMockResolver()
	resolver.nameToID["Juan Perez"] = 10

	f := newTestFacade(repo, resolver)
	id, err := f.Upsert(context.Background(), Input{
		Fecha:    "2025-03-15",
		Paciente: "Juan Perez",
		Glucosa:  "",
		UFTotal:  "1.5",
	}, adminSess)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	stored := repo.entries[id]
	if stored.Glucosa != nil {
		t.Errorf("empty glucosa stored as %q, want absent", *stored.Glucosa)
	}
	if stored.UFTotal == nil || *stored.UFTotal != "1.5" {
		t.Errorf("ufTotal not stored: %v", stored.UFTotal)
	}
}

func TestUpsertStandardForcesOwnPatient(t *testing.T) {
	repo := newMockEntryRepo()
	resolver := newMockResolver()
	resolver.userToID[standardSess.UserID] = 10
	resolver.nameToID["Otro Paciente"] = 99

	f := newTestFacade(repo, resolver)
	id, err := f.Upsert(context.Background(), Input{
		Fecha:    "2025-03-15",
		Paciente: "Otro Paciente",
	}, standardSess)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if repo.entries[id].PatientID != 10 {
		t.Errorf("entry written for patient %d, want caller's own 10", repo.entries[id].PatientID)
	}
}

func TestUpsertStandardWithoutPatientLink(t *testing.T) {
	repo := newMockEntryRepo()
	f := newTestFacade(repo, newMockResolver())

	_, err := f.Upsert(context.Background(), Input{Fecha: "2025-03-15"}, standardSess)
	if KindOf(err) != KindInput {
		t.Fatalf("expected input error, got %v", err)
	}
	if repo.insertCalls != 0 {
		t.Errorf("storage written for an unlinked caller")
	}
}

func TestUpsertAdminRequiresPatientName(t *testing.T) {
	repo := newMockEntryRepo()
	f := newTestFacade(repo, newMockResolver())

	_, err := f.Upsert(context.Background(), Input{Fecha: "2025-03-15"}, adminSess)
	if KindOf(err) != KindInput {
		t.Errorf("expected input error for missing paciente, got %v", err)
	}
}

func TestUpsertAdminUnknownPatient(t *testing.T) {
	repo := newMockEntryRepo()
	f := newTestFacade(repo, newMockResolver())

	_, err := f.Upsert(context.Background(), Input{
		Fecha:    "2025-03-15",
		Paciente: "Nadie",
	}, adminSess)
	if KindOf(err) != KindInput {
		t.Fatalf("expected input error, got %v", err)
	}
	if repo.insertCalls != 0 {
		t.Errorf("storage written despite unresolvable patient")
	}
}

func TestUpsertUpdateNotOwned(t *testing.T) {
	repo := newMockEntryRepo()
	id := seedEntry(repo, 99, "2025-03-15")

	resolver := newMockResolver()
	resolver.userToID[standardSess.UserID] = 10

	f := newTestFacade(repo, resolver)
	_, err := f.Upsert(context.Background(), Input{
		ID:    strconv.FormatInt(id, 10),
		Fecha: "2025-04-01",
	}, standardSess)

	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not-found for another patient's entry, got %v", err)
	}
	if repo.updateCalls != 0 {
		t.Errorf("entry updated despite ownership failure")
	}
	if repo.entries[id].Fecha != "2025-03-15" {
		t.Errorf("stored entry changed")
	}
}

func TestUpsertFiresCreatedEvent(t *testing.T) {
	repo := newMockEntryRepo()
	resolver := newMockResolver()
	resolver.nameToID["Juan Perez"] = 10

	var got []Event
	listener := ListenerFunc(func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	f := newTestFacade(repo, resolver, listener)
	id, err := f.Upsert(context.Background(), Input{
		Fecha:    "2025-03-15",
		Paciente: "Juan Perez",
	}, adminSess)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if len(got) != 1 || got[0].Kind != EventCreated || got[0].EntryID != id || got[0].PatientID != 10 {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestUpsertFiresUpdatedEvent(t *testing.T) {
	repo := newMockEntryRepo()
	id := seedEntry(repo, 10, "2025-03-15")
	resolver := newMockResolver()
	resolver.nameToID["Juan Perez"] = 10

	var got []Event
	f := newTestFacade(repo, resolver, ListenerFunc(func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	}))

	_, err := f.Upsert(context.Background(), Input{
		ID:       strconv.FormatInt(id, 10),
		Fecha:    "2025-04-01",
		Paciente: "Juan Perez",
	}, adminSess)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if len(got) != 1 || got[0].Kind != EventUpdated {
		t.Errorf("unexpected events: %+v", got)
	}
	if repo.entries[id].Fecha != "2025-04-01" {
		t.Errorf("entry not updated: %+v", repo.entries[id])
	}
}

func TestUpsertRoundTrip(t *testing.T) {
	repo := newMockEntryRepo()
	resolver := newMockResolver()
	resolver.nameToID["Juan Perez"] = 10

	f := newTestFacade(repo, resolver)
	id, err := f.Upsert(context.Background(), Input{
		Fecha:           "2025-03-15",
		Paciente:        "Juan Perez",
		HoraInicio:      "08:00",
		Glucosa:         "120.5",
		PresionArterial: "120/80",
	}, adminSess)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	e, err := f.GetByID(context.Background(), id, adminSess)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if e.Glucosa == nil || *e.Glucosa != "120.5" {
		t.Errorf("glucosa = %v", e.Glucosa)
	}
	if e.PresionArterial == nil || *e.PresionArterial != "120/80" {
		t.Errorf("presionArterial = %v", e.PresionArterial)
	}
	if e.FechaFmt != "15/03/2025" {
		t.Errorf("FechaFmt = %q", e.FechaFmt)
	}
}

// -- Delete --

func TestDeleteNotOwnedStaysStored(t *testing.T) {
	repo := newMockEntryRepo()
	id := seedEntry(repo, 99, "2025-03-15")

	resolver := newMockResolver()
	resolver.userToID[standardSess.UserID] = 10

	f := newTestFacade(repo, resolver)
	err := f.Delete(context.Background(), id, standardSess)

	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
	if _, ok := repo.entries[id]; !ok {
		t.Errorf("entry was deleted despite ownership failure")
	}
}

func TestDeleteOwnFiresEvent(t *testing.T) {
	repo := newMockEntryRepo()
	id := seedEntry(repo, 10, "2025-03-15")

	resolver := newMockResolver()
	resolver.userToID[standardSess.UserID] = 10

	var got []Event
	f := newTestFacade(repo, resolver, ListenerFunc(func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	}))

	if err := f.Delete(context.Background(), id, standardSess); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := repo.entries[id]; ok {
		t.Errorf("entry still stored after delete")
	}
	if len(got) != 1 || got[0].Kind != EventDeleted || got[0].PatientID != 10 {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestDeleteInvalidID(t *testing.T) {
	f := newTestFacade(newMockEntryRepo(), newMockResolver())
	if err := f.Delete(context.Background(), 0, adminSess); KindOf(err) != KindInput {
		t.Errorf("expected input error, got %v", err)
	}
}
