package bitacora

// Entry is one peritoneal-dialysis log row as stored. Optional values are
// carried as raw strings exactly as the storage layer returned them; the
// decorator chain validates and derives from them, so a bad stored value
// surfaces as a dropped or unformatted record instead of a scan failure.
type Entry struct {
	ID              int64   `db:"idBitacora" json:"idBitacora"`
	PatientID       int64   `db:"idPaciente" json:"idPaciente"`
	Fecha           string  `db:"fecha" json:"fecha"`
	HoraInicio      *string `db:"horaInicio" json:"horaInicio"`
	HoraFin         *string `db:"horaFin" json:"horaFin"`
	DrenajeInicial  *string `db:"drenajeInicial" json:"drenajeInicial"`
	UFTotal         *string `db:"ufTotal" json:"ufTotal"`
	TiempoMedioPerm *string `db:"tiempoMedioPerm" json:"tiempoMedioPerm"`
	LiquidoIngerido *string `db:"liquidoIngerido" json:"liquidoIngerido"`
	CantidadOrina   *string `db:"cantidadOrina" json:"cantidadOrina"`
	Glucosa         *string `db:"glucosa" json:"glucosa"`
	PresionArterial *string `db:"presionArterial" json:"presionArterial"`
	CreatedAt       *string `db:"created_at" json:"createdAt,omitempty"`
	UpdatedAt       *string `db:"updated_at" json:"updatedAt,omitempty"`

	// Derived by the formatting stage; empty until the chain runs.
	FechaFmt     string `db:"-" json:"fechaFormateada,omitempty"`
	CreatedAtFmt string `db:"-" json:"createdAtFormateado,omitempty"`
	UpdatedAtFmt string `db:"-" json:"updatedAtFormateado,omitempty"`
}

// numericFields lists the optional fields that must parse as floats when
// present. Order matters nowhere; the validation stage ranges over it.
func (e *Entry) numericFields() []*string {
	return []*string{
		e.DrenajeInicial, e.UFTotal, e.TiempoMedioPerm,
		e.LiquidoIngerido, e.CantidadOrina, e.Glucosa,
	}
}

// SearchParams is the request-scoped search input, never persisted. Month
// filters across all years unless Year is also supplied.
type SearchParams struct {
	Month    *int
	Year     *int
	FreeText string
	// PatientID restricts results to one patient; nil means unrestricted
	// (admin only — the facade always pins it for standard callers).
	PatientID *int64
}

// Metadata counts non-null occurrences of the clinically interesting fields
// in a result batch.
type Metadata struct {
	ConGlucosa         int `json:"conGlucosa"`
	ConPresionArterial int `json:"conPresionArterial"`
	ConUFTotal         int `json:"conUFTotal"`
}

// Result is the envelope produced by the terminal aggregation stage.
// Recomputed on every search, never cached.
type Result struct {
	Registros []Entry   `json:"registros"`
	Total     int       `json:"total"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// Input is the raw upsert payload as it arrives from the client. All values
// are strings; parsing and validation happen before any storage call.
type Input struct {
	ID              string `json:"id" form:"id"`
	Paciente        string `json:"paciente" form:"paciente"`
	Fecha           string `json:"fecha" form:"fecha"`
	HoraInicio      string `json:"horaInicio" form:"horaInicio"`
	HoraFin         string `json:"horaFin" form:"horaFin"`
	DrenajeInicial  string `json:"drenajeInicial" form:"drenajeInicial"`
	UFTotal         string `json:"ufTotal" form:"ufTotal"`
	TiempoMedioPerm string `json:"tiempoMedioPerm" form:"tiempoMedioPerm"`
	LiquidoIngerido string `json:"liquidoIngerido" form:"liquidoIngerido"`
	CantidadOrina   string `json:"cantidadOrina" form:"cantidadOrina"`
	Glucosa         string `json:"glucosa" form:"glucosa"`
	PresionArterial string `json:"presionArterial" form:"presionArterial"`
}

// EntryWrite is the parsed, typed form of an Input headed for storage.
// Empty numeric strings become nil, never zero.
type EntryWrite struct {
	ID              int64
	PatientID       int64
	Fecha           string
	HoraInicio      *string
	HoraFin         *string
	DrenajeInicial  *float64
	UFTotal         *float64
	TiempoMedioPerm *float64
	LiquidoIngerido *float64
	CantidadOrina   *float64
	Glucosa         *float64
	PresionArterial *string
}
