// Package catalog turns the normalized storage representation
// (catalogs -> categories -> product ID lists) into the denormalized,
// ordered view the customer menu renders. The transform is pure: no
// shared state, identical inputs yield structurally identical output,
// which is what makes the result cacheable under the customer_catalog
// tag.
package catalog

import (
	"sort"

	"github.com/warungmeja/api/internal/database"
)

// AllMenuName is the synthesized aggregate catalog shown first.
const AllMenuName = "All Menu"

// ProductView is a fully resolved product inside a display category.
type ProductView struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Image       *string               `json:"image"`
	Thumbnail   *string               `json:"thumbnail"`
	Description string                `json:"description"`
	Price       int64                 `json:"price"`
	UseStock    bool                  `json:"useStock"`
	Stock       int32                 `json:"stock"`
	Addons      []database.AddonGroup `json:"addons"`
}

// DisplayCategory is one named section of a display catalog.
type DisplayCategory struct {
	Name     string        `json:"name"`
	Products []ProductView `json:"product_list"`
}

// DisplayCatalog is the derived, read-only customer view. IsSelected
// is a transient UI field of the snapshot, never persisted.
type DisplayCatalog struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	SortOrder  int32             `json:"sort_order"`
	IsSelected bool              `json:"is_selected"`
	Categories []DisplayCategory `json:"category_list_with_products"`
}

// Aggregate resolves every category's product IDs against products and
// returns the ordered display catalogs, headed by a synthesized
// "All Menu" entry that unions every real catalog's categories in
// catalog-then-category order (categories with equal names stay
// distinct). IDs that do not resolve to a live product are omitted:
// the customer view degrades gracefully; write-side validation is
// where dangling references get rejected.
//
// Ordering: catalogs by sort_order ascending, categories by their
// stored array position, products by their position in the ID list.
// Exactly one returned entry has IsSelected = true (the aggregate).
func Aggregate(catalogs []database.Catalog, products []database.Product) []DisplayCatalog {
	byID := make(map[int64]database.Product, len(products))
	for _, p := range products {
		if !p.IsDeleted {
			byID[p.ID] = p
		}
	}

	live := make([]database.Catalog, 0, len(catalogs))
	for _, c := range catalogs {
		if !c.IsDeleted {
			live = append(live, c)
		}
	}
	sort.SliceStable(live, func(i, j int) bool {
		return live[i].SortOrder < live[j].SortOrder
	})

	allMenu := DisplayCatalog{
		ID:         0,
		Name:       AllMenuName,
		SortOrder:  0,
		IsSelected: true,
		Categories: []DisplayCategory{},
	}
	out := make([]DisplayCatalog, 0, len(live)+1)
	out = append(out, allMenu)

	for _, c := range live {
		dc := DisplayCatalog{
			ID:         c.ID,
			Name:       c.Name,
			SortOrder:  c.SortOrder,
			Categories: make([]DisplayCategory, 0, len(c.CategoryList)),
		}
		for _, cat := range c.CategoryList {
			resolved := DisplayCategory{
				Name:     cat.Name,
				Products: make([]ProductView, 0, len(cat.ProductList)),
			}
			for _, id := range cat.ProductList {
				p, ok := byID[id]
				if !ok {
					continue
				}
				resolved.Products = append(resolved.Products, toProductView(p))
			}
			dc.Categories = append(dc.Categories, resolved)
			out[0].Categories = append(out[0].Categories, resolved)
		}
		out = append(out, dc)
	}

	return out
}

func toProductView(p database.Product) ProductView {
	v := ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		UseStock:    p.UseStock,
		Stock:       p.Stock,
		Addons:      database.CloneAddonGroups(p.Addons),
	}
	if p.Image.Valid {
		img := p.Image.String
		v.Image = &img
	}
	if p.Thumbnail.Valid {
		th := p.Thumbnail.String
		v.Thumbnail = &th
	}
	return v
}
