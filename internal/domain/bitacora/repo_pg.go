package bitacora

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitacora/bitacora/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type entryRepoPG struct{ pool *pgxpool.Pool }

func NewEntryRepoPG(pool *pgxpool.Pool) EntryRepository {
	return &entryRepoPG{pool: pool}
}

func (r *entryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// Optional values come back as text so the decorator chain sees exactly
// what is stored.
const entryCols = `"idBitacora", "idPaciente", fecha::text,
	"horaInicio"::text, "horaFin"::text,
	"drenajeInicial"::text, "ufTotal"::text, "tiempoMedioPerm"::text,
	"liquidoIngerido"::text, "cantidadOrina"::text, glucosa::text,
	"presionArterial", created_at::text, updated_at::text`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.PatientID, &e.Fecha,
		&e.HoraInicio, &e.HoraFin,
		&e.DrenajeInicial, &e.UFTotal, &e.TiempoMedioPerm,
		&e.LiquidoIngerido, &e.CantidadOrina, &e.Glucosa,
		&e.PresionArterial, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *entryRepoPG) Search(ctx context.Context, kind StrategyKind, params SearchParams) ([]Entry, error) {
	var where []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if params.PatientID != nil {
		where = append(where, `"idPaciente" = `+arg(*params.PatientID))
	}

	if (kind == ByMonth || kind == ByMonthAndText) && params.Month != nil {
		where = append(where, `EXTRACT(MONTH FROM fecha) = `+arg(*params.Month))
		if params.Year != nil {
			where = append(where, `EXTRACT(YEAR FROM fecha) = `+arg(*params.Year))
		}
	}

	if kind == ByText || kind == ByMonthAndText {
		pattern := "%" + params.FreeText + "%"
		p := arg(pattern)
		where = append(where, fmt.Sprintf(
			`("idBitacora"::text LIKE %s OR fecha::text LIKE %s OR glucosa::text LIKE %s)`,
			p, p, p))
	}

	query := `SELECT ` + entryCols + ` FROM bitacora`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY "idBitacora" DESC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *entryRepoPG) GetByID(ctx context.Context, id int64) (*Entry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM bitacora WHERE "idBitacora" = $1`, id))
}

func (r *entryRepoPG) Insert(ctx context.Context, w *EntryWrite) (int64, error) {
	var id int64
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bitacora ("idPaciente", fecha, "horaInicio", "horaFin",
			"drenajeInicial", "ufTotal", "tiempoMedioPerm",
			"liquidoIngerido", "cantidadOrina", glucosa, "presionArterial")
		VALUES ($1, $2::date, $3::time, $4::time, $5, $6, $7, $8, $9, $10, $11)
		RETURNING "idBitacora"`,
		w.PatientID, w.Fecha, w.HoraInicio, w.HoraFin,
		w.DrenajeInicial, w.UFTotal, w.TiempoMedioPerm,
		w.LiquidoIngerido, w.CantidadOrina, w.Glucosa, w.PresionArterial).Scan(&id)
	return id, err
}

func (r *entryRepoPG) Update(ctx context.Context, w *EntryWrite) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE bitacora SET "idPaciente" = $2, fecha = $3::date,
			"horaInicio" = $4::time, "horaFin" = $5::time,
			"drenajeInicial" = $6, "ufTotal" = $7, "tiempoMedioPerm" = $8,
			"liquidoIngerido" = $9, "cantidadOrina" = $10, glucosa = $11,
			"presionArterial" = $12, updated_at = NOW()
		WHERE "idBitacora" = $1`,
		w.ID, w.PatientID, w.Fecha, w.HoraInicio, w.HoraFin,
		w.DrenajeInicial, w.UFTotal, w.TiempoMedioPerm,
		w.LiquidoIngerido, w.CantidadOrina, w.Glucosa, w.PresionArterial)
	return err
}

func (r *entryRepoPG) Delete(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM bitacora WHERE "idBitacora" = $1`, id)
	return err
}
