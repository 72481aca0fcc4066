package polymarket

import (
	"encoding/json"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
	"github.com/alanyoungcy/deadlinewatch/internal/platform/flex"
)

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIEvent is an event embedded in a Gamma market response.
type APIEvent struct {
	ID      flex.ID   `json:"id"`
	Title   flex.Text `json:"title"`
	EndDate flex.Text `json:"endDate"`
}

// UnmarshalJSON leaves the event empty when the element is not an object.
func (e *APIEvent) UnmarshalJSON(data []byte) error {
	if !flex.IsObject(data) {
		return nil
	}
	type alias APIEvent
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return nil
	}
	*e = APIEvent(a)
	return nil
}

// apiEvents is absent unless the field is a JSON array.
type apiEvents struct {
	items []APIEvent
	set   bool
}

func (a *apiEvents) UnmarshalJSON(data []byte) error {
	var items []APIEvent
	if err := json.Unmarshal(data, &items); err != nil || items == nil {
		return nil
	}
	*a = apiEvents{items: items, set: true}
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API. Only
// the fields the deadline view needs are decoded.
type APIMarket struct {
	ID        flex.ID    `json:"id"`
	Question  flex.Text  `json:"question"`
	Slug      flex.Text  `json:"slug"`
	EndDate   flex.Text  `json:"endDate"`
	Volume    flex.Float `json:"volume"`
	Liquidity flex.Float `json:"liquidity"`
	Active    flex.Bool  `json:"active"`
	Closed    flex.Bool  `json:"closed"`
	Events    apiEvents  `json:"events"`
}

// UnmarshalJSON decodes field by field and tolerates any shape: a non-object
// element yields an empty market rather than failing the whole page.
func (m *APIMarket) UnmarshalJSON(data []byte) error {
	if !flex.IsObject(data) {
		return nil
	}
	type alias APIMarket
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return nil
	}
	*m = APIMarket(a)
	return nil
}

// ToDomainMarket converts the DTO into the domain record.
func (m *APIMarket) ToDomainMarket() domain.RawMarket {
	rec := domain.RawMarket{
		ID:        m.ID.Optional(),
		Question:  m.Question.Optional(),
		Slug:      m.Slug.Optional(),
		EndDate:   m.EndDate.Optional(),
		Volume:    m.Volume.Optional(),
		Liquidity: m.Liquidity.Optional(),
		Active:    m.Active.Optional(),
		Closed:    m.Closed.Optional(),
	}
	if m.Events.set {
		events := make([]domain.EventRecord, 0, len(m.Events.items))
		for _, e := range m.Events.items {
			events = append(events, domain.EventRecord{
				ID:      e.ID.Optional(),
				Title:   e.Title.Optional(),
				EndDate: e.EndDate.Optional(),
			})
		}
		rec.Events = domain.Some(events)
	}
	return rec
}
