package world

// GasBottle is one inventory item holding pressurized gas. Fill levels are
// ratios in [0, 1]; Capacity converts a ratio into absolute gas units.
type GasBottle struct {
	ID       int64   `json:"id"`
	GasType  string  `json:"gasType"`
	Capacity float64 `json:"capacity"`

	fill float64
}

// NewGasBottle creates a bottle with the given fill ratio (clamped to [0,1]).
func NewGasBottle(id int64, gasType string, capacity, fill float64) *GasBottle {
	b := &GasBottle{ID: id, GasType: gasType, Capacity: capacity}
	b.SetFill(fill)
	return b
}

// Fill returns the current fill ratio.
func (b *GasBottle) Fill() float64 {
	return b.fill
}

// SetFill overwrites the fill ratio, clamped to [0, 1].
func (b *GasBottle) SetFill(f float64) {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	b.fill = f
}

// Inventory is an agent's carried item collection. Only gas bottles are
// modeled; everything else the host inventory holds is invisible to the rules.
type Inventory struct {
	bottles []*GasBottle

	nextSub int
	subs    map[int]func(changed *GasBottle)
}

// NewInventory creates an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{subs: make(map[int]func(*GasBottle))}
}

// Bottles returns the carried bottles in stable insertion order.
func (inv *Inventory) Bottles() []*GasBottle {
	return inv.bottles
}

// Bottle looks up a bottle by id. The second result is false if the bottle
// has left the inventory since it was last observed.
func (inv *Inventory) Bottle(id int64) (*GasBottle, bool) {
	for _, b := range inv.bottles {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// Add inserts a bottle and notifies content-changed subscribers.
func (inv *Inventory) Add(b *GasBottle) {
	inv.bottles = append(inv.bottles, b)
	inv.notify(b)
}

// Remove takes a bottle out by id and notifies subscribers. Removing an
// unknown id is a no-op.
func (inv *Inventory) Remove(id int64) {
	for i, b := range inv.bottles {
		if b.ID == id {
			inv.bottles = append(inv.bottles[:i], inv.bottles[i+1:]...)
			inv.notify(b)
			return
		}
	}
}

// SubscribeChanged registers a content-changed callback and returns its
// unsubscribe function. The callback receives the bottle that entered or
// left the inventory.
func (inv *Inventory) SubscribeChanged(fn func(changed *GasBottle)) func() {
	id := inv.nextSub
	inv.nextSub++
	inv.subs[id] = fn
	return func() {
		delete(inv.subs, id)
	}
}

func (inv *Inventory) notify(changed *GasBottle) {
	for _, fn := range inv.subs {
		fn(changed)
	}
}
