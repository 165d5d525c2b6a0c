package entity

import (
	"errors"
	"strings"
	"time"
)

// Order is a customer order. Orders are soft deleted: DeletedAt is set and
// the row stays in the table.
type Order struct {
	ID        int64
	Name      string
	Phone     string
	County    string
	Location  string
	Item      string
	Quantity  int
	Price     float64
	Amount    float64
	Note      string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderDetails holds the caller-supplied part of an order.
type OrderDetails struct {
	Name     string
	Phone    string
	County   string
	Location string
	Item     string
	Quantity int
	Price    float64
	Amount   float64
	Note     string
}

// NewOrder builds an unsaved order. When Amount is zero it is derived from
// Quantity and Price.
func NewOrder(d OrderDetails) (*Order, error) {
	o := &Order{}
	o.apply(d)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Update replaces the order details, keeping identity and timestamps.
func (o *Order) Update(d OrderDetails) error {
	updated := *o
	updated.apply(d)
	if err := updated.Validate(); err != nil {
		return err
	}
	*o = updated
	return nil
}

// Validate checks the invariants every stored order satisfies.
func (o *Order) Validate() error {
	if o.Name == "" {
		return errors.New("customer name is required")
	}
	if o.Item == "" {
		return errors.New("order item is required")
	}
	if o.Quantity <= 0 {
		return errors.New("order quantity must be positive")
	}
	if o.Price < 0 || o.Amount < 0 {
		return errors.New("order price and amount cannot be negative")
	}
	return nil
}

// IsDeleted reports whether the order was soft deleted.
func (o *Order) IsDeleted() bool {
	return o.DeletedAt != nil
}

func (o *Order) apply(d OrderDetails) {
	o.Name = strings.TrimSpace(d.Name)
	o.Phone = strings.TrimSpace(d.Phone)
	o.County = strings.TrimSpace(d.County)
	o.Location = strings.TrimSpace(d.Location)
	o.Item = strings.TrimSpace(d.Item)
	o.Quantity = d.Quantity
	o.Price = d.Price
	o.Amount = d.Amount
	o.Note = strings.TrimSpace(d.Note)
	if o.Amount == 0 {
		o.Amount = float64(o.Quantity) * o.Price
	}
}
