package events

import "time"

const (
	EntityCocktail   = "cocktail"
	EntityIngredient = "ingredient"
	EntityCatalog    = "catalog"
	EntityLayout     = "layout"
	EntitySettings   = "settings"
)

// Event is one change notification, sent as a JSON line.
type Event struct {
	Type   string    `json:"type"` // "<entity>.create", "<entity>.update", "<entity>.delete", "catalog.reorder"
	Entity string    `json:"entity"`
	ID     string    `json:"id,omitempty"`
	Name   string    `json:"name,omitempty"`
	At     time.Time `json:"at"`
}

func New(entity, action, id, name string) Event {
	return Event{
		Type:   entity + "." + action,
		Entity: entity,
		ID:     id,
		Name:   name,
		At:     time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(Event) {}

// OrNop returns p, or Nop when p is nil.
func OrNop(p Publisher) Publisher {
	if p == nil {
		return Nop{}
	}
	return p
}
