package bitacora

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// The decorator chain is a fixed-order pipeline: validation, then date
// formatting, then aggregation. Each stage is a pure function that works
// stand-alone on its input; the chain just applies them in sequence. Later
// stages assume earlier ones already filtered and normalized the batch.

// Stage transforms a record batch.
type Stage func([]Entry) []Entry

const (
	dateLayout     = "2006-01-02"
	dateOutLayout  = "02/01/2006"
	stampOutLayout = "02/01/2006 15:04"
)

// timestamp layouts seen from the storage driver, longest first.
var stampLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Validate drops records missing the mandatory date and records where a
// numeric field is present but does not parse as a float. Invalid rows are
// silently excluded; running it again on its own output drops nothing more.
func Validate(batch []Entry) []Entry {
	out := make([]Entry, 0, len(batch))
	for _, e := range batch {
		if e.Fecha == "" {
			continue
		}
		ok := true
		for _, f := range e.numericFields() {
			if f == nil || *f == "" {
				continue
			}
			if _, err := strconv.ParseFloat(*f, 64); err != nil {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, e)
		}
	}
	return out
}

// FormatDates derives the human-readable date fields. An unparseable stored
// value falls back to the raw string unchanged; the stage never drops and
// never fails.
func FormatDates(batch []Entry) []Entry {
	out := make([]Entry, len(batch))
	for i, e := range batch {
		e.FechaFmt = formatDate(e.Fecha)
		if e.CreatedAt != nil {
			e.CreatedAtFmt = formatStamp(*e.CreatedAt)
		}
		if e.UpdatedAt != nil {
			e.UpdatedAtFmt = formatStamp(*e.UpdatedAt)
		}
		out[i] = e
	}
	return out
}

func formatDate(raw string) string {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.Format(dateOutLayout)
	}
	return raw
}

func formatStamp(raw string) string {
	for _, layout := range stampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(stampOutLayout)
		}
	}
	return raw
}

// Aggregate wraps the batch into the result envelope. Metadata is computed
// only for non-empty batches.
func Aggregate(batch []Entry) *Result {
	res := &Result{Registros: batch, Total: len(batch)}
	if res.Registros == nil {
		res.Registros = []Entry{}
	}
	if res.Total == 0 {
		return res
	}

	md := &Metadata{}
	for _, e := range batch {
		if e.Glucosa != nil && *e.Glucosa != "" {
			md.ConGlucosa++
		}
		if e.PresionArterial != nil && *e.PresionArterial != "" {
			md.ConPresionArterial++
		}
		if e.UFTotal != nil && *e.UFTotal != "" {
			md.ConUFTotal++
		}
	}
	res.Metadata = md
	return res
}

// Chain applies the fixed stage order and terminates with Aggregate.
type Chain struct {
	stages []Stage
	logger zerolog.Logger
}

func NewChain(logger zerolog.Logger) *Chain {
	return &Chain{
		stages: []Stage{Validate, FormatDates},
		logger: logger,
	}
}

// Run pipes the batch through every stage and aggregates. The count of
// records discarded by validation is logged so operators can tell excluded
// from never-existed; the API surface stays silent about it.
func (c *Chain) Run(batch []Entry) *Result {
	in := len(batch)
	for _, stage := range c.stages {
		batch = stage(batch)
	}
	if dropped := in - len(batch); dropped > 0 {
		c.logger.Debug().Int("discarded", dropped).Msg("validation discarded records")
	}
	return Aggregate(batch)
}
