package orders

import (
	"sort"

	"github.com/AIAI/extension/pkg/core"
)

// Book holds the order in force for each squad. Supersession is monotonic by IssuedAt.
type Book struct {
	orders map[int]core.Order
}

// NewBook creates an empty book
func NewBook() *Book {
	return &Book{orders: make(map[int]core.Order)}
}

// Apply records orders and returns the ones that differ from what was in force,
// sorted by squad ID. Orders older than the one held for their squad are rejected.
func (b *Book) Apply(orders []core.Order) []core.Order {
	var changed []core.Order
	for _, o := range orders {
		cur, ok := b.orders[o.SquadID]
		if ok && o.IssuedAt < cur.IssuedAt {
			continue
		}
		if ok && o == cur {
			continue
		}
		b.orders[o.SquadID] = o
		changed = append(changed, o)
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].SquadID < changed[j].SquadID })
	return changed
}

// Retain drops orders of squads not in keep and returns the dropped squad IDs
func (b *Book) Retain(keep []core.Squad) []int {
	alive := make(map[int]bool, len(keep))
	for _, s := range keep {
		alive[s.ID] = true
	}
	var dropped []int
	for id := range b.orders {
		if !alive[id] {
			delete(b.orders, id)
			dropped = append(dropped, id)
		}
	}
	sort.Ints(dropped)
	return dropped
}

// Forget removes a squad's order so the next Apply treats its replacement as new
func (b *Book) Forget(squadID int) {
	delete(b.orders, squadID)
}

// Get returns the order in force for a squad
func (b *Book) Get(squadID int) (core.Order, bool) {
	o, ok := b.orders[squadID]
	return o, ok
}

// All returns the orders in force sorted by squad ID
func (b *Book) All() []core.Order {
	out := make([]core.Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SquadID < out[j].SquadID })
	return out
}

// ByID returns a copy of the orders in force keyed by squad ID
func (b *Book) ByID() map[int]core.Order {
	out := make(map[int]core.Order, len(b.orders))
	for id, o := range b.orders {
		out[id] = o
	}
	return out
}

// Len is the number of squads with an order
func (b *Book) Len() int { return len(b.orders) }
