package bitacora

// StrategyKind is the tagged variant a search dispatches on. Selection is a
// pure function of the request parameters; the repository shapes its query
// from the kind.
type StrategyKind int

const (
	// ByText matches the free text against the id, date and glucose fields;
	// empty text matches everything.
	ByText StrategyKind = iota
	// ByMonth filters by month across all years; a supplied year narrows it
	// to that year only.
	ByMonth
	// ByMonthAndText applies the ByMonth filter and the ByText match together.
	ByMonthAndText
)

func (k StrategyKind) String() string {
	switch k {
	case ByMonth:
		return "by-month"
	case ByMonthAndText:
		return "by-month-and-text"
	default:
		return "by-text"
	}
}

// SelectStrategy picks the query shape for the given parameters. Month-only
// semantics: the month filter applies whenever a month is present, with year
// as an optional narrowing — "every January" works without naming a year.
func SelectStrategy(p SearchParams) StrategyKind {
	hasMonth := p.Month != nil && *p.Month >= 1 && *p.Month <= 12
	hasText := p.FreeText != ""

	switch {
	case hasMonth && hasText:
		return ByMonthAndText
	case hasMonth:
		return ByMonth
	default:
		return ByText
	}
}
