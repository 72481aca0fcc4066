package domain

// RawMarket is a market record as delivered by an upstream feed. Every field
// is optional: the feed omits fields, sends them with the wrong JSON type, or
// sends null, and all of those decode to an absent value.
type RawMarket struct {
	ID        Optional[string]
	Question  Optional[string]
	Slug      Optional[string]
	EndDate   Optional[string] // raw ISO-8601 text, parsed by the resolver
	Volume    Optional[float64]
	Liquidity Optional[float64]

	// Active and Closed are carried for reporting only. The upstream sets them
	// inconsistently, so nothing filters on them.
	Active Optional[bool]
	Closed Optional[bool]

	// Events is absent when the field is missing or is not a JSON array.
	Events Optional[[]EventRecord]

	// Condition is only filled by the subgraph source.
	Condition Optional[ConditionRecord]
}

// EventRecord is an event embedded in a market record. It only refers back to
// its market through the record that contains it.
type EventRecord struct {
	ID      Optional[string]
	Title   Optional[string]
	EndDate Optional[string]
}

// ConditionRecord is the on-chain condition attached to a subgraph market.
type ConditionRecord struct {
	ID             Optional[string]
	ResolutionTime Optional[string] // unix seconds, as text
}

// Label returns a human readable name for the record: the question when
// present, then the ID.
func (m RawMarket) Label() string {
	if q, ok := m.Question.Get(); ok && q != "" {
		return q
	}
	return m.ID.OrElse("<unknown>")
}
