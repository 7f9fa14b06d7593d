package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// AddonItem is one selectable extra inside an addon group. Price is in
// the smallest currency unit. IsSelected is only meaningful on cart
// snapshots; on the shared product record it is always false.
type AddonItem struct {
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	IsSelected bool   `json:"isSelected,omitempty"`
}

// AddonGroup is a named set of extras on a product. Type is
// enum.AddonTypeOne (radio) or enum.AddonTypeMultiple (checkbox).
// Items order is display and selection order.
type AddonGroup struct {
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Items []AddonItem `json:"items"`
}

// Category is a named grouping inside a catalog referencing products
// by ID. Stored as jsonb on the catalog row.
type Category struct {
	Name        string  `json:"name"`
	ProductList []int64 `json:"productList"`
}

// CloneAddonGroups deep-copies addon groups so selection state can be
// flipped on the copy without touching the shared product record.
func CloneAddonGroups(groups []AddonGroup) []AddonGroup {
	if groups == nil {
		return nil
	}
	out := make([]AddonGroup, len(groups))
	for i, g := range groups {
		items := make([]AddonItem, len(g.Items))
		copy(items, g.Items)
		out[i] = AddonGroup{Name: g.Name, Type: g.Type, Items: items}
	}
	return out
}

type Admin struct {
	ID        uuid.UUID
	Username  string
	Password  string // bcrypt hash
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID          int64
	Name        string
	Sku         string
	Image       pgtype.Text
	Thumbnail   pgtype.Text
	Description string
	Price       int64
	UseStock    bool
	Stock       int32
	Addons      []AddonGroup
	AdminID     uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	IsDeleted   bool
}

type Catalog struct {
	ID           int64
	Name         string
	CategoryList []Category
	AdminID      uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	IsDeleted    bool
	SortOrder    int32
}

type Table struct {
	ID          int64
	TableNumber int32
	AdminID     uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	IsDeleted   bool
}

// Order is a committed checkout. CartItems is the priced cart snapshot
// as stored (jsonb); callers unmarshal into cart.Item when needed.
type Order struct {
	ID            int64
	CustomerName  string
	PhoneNumber   string
	CartItems     json.RawMessage
	Status        string
	PaymentMethod pgtype.Text
	PaymentLink   pgtype.Text
	TableID       int64
	TableNumber   int32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
