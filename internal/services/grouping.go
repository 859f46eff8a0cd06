package services

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"orderportal/server/internal/models"
)

// DefaultGroupLabel collects items without a group
const DefaultGroupLabel = "Other"

// Group is one labelled section of a grouped list
type Group[T any] struct {
	Label string `json:"label"`
	Items []T    `json:"items"`
}

// Grouper orders labels and names with a locale collator, ignoring case and
// accents. Equal collation keys fall back to byte order, then to id, so the
// result depends only on the input.
type Grouper struct {
	mu       sync.Mutex
	collator *collate.Collator
}

func NewGrouper(locale string) *Grouper {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Croatian
	}
	return &Grouper{collator: collate.New(tag, collate.IgnoreCase, collate.IgnoreDiacritics)}
}

// Compare is safe for concurrent use
func (g *Grouper) Compare(a, b string) int {
	g.mu.Lock()
	c := g.collator.CompareString(a, b)
	g.mu.Unlock()
	if c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// GroupItems buckets items by label (DefaultGroupLabel when empty) and sorts
// groups and items. It never mutates the input.
func GroupItems[T any](g *Grouper, items []T, label func(T) *string, name func(T) string, id func(T) int64) []Group[T] {
	buckets := make(map[string][]T)
	for _, item := range items {
		key := DefaultGroupLabel
		if l := label(item); l != nil && strings.TrimSpace(*l) != "" {
			key = *l
		}
		buckets[key] = append(buckets[key], item)
	}

	groups := make([]Group[T], 0, len(buckets))
	for key, members := range buckets {
		sort.SliceStable(members, func(i, j int) bool {
			if c := g.Compare(name(members[i]), name(members[j])); c != 0 {
				return c < 0
			}
			return id(members[i]) < id(members[j])
		})
		groups = append(groups, Group[T]{Label: key, Items: members})
	}
	sort.Slice(groups, func(i, j int) bool {
		return g.Compare(groups[i].Label, groups[j].Label) < 0
	})
	return groups
}

// GroupCatalog groups a supplier catalog for display
func GroupCatalog(g *Grouper, items []models.CatalogItem) []Group[models.CatalogItem] {
	return GroupItems(g, items,
		func(i models.CatalogItem) *string { return i.GroupLabel },
		func(i models.CatalogItem) string { return i.Name },
		func(i models.CatalogItem) int64 { return i.ID },
	)
}

// GroupOrderItems groups the lines of a confirmed order the same way
func GroupOrderItems(g *Grouper, items []models.PurchaseOrderItem) []Group[models.PurchaseOrderItem] {
	return GroupItems(g, items,
		func(i models.PurchaseOrderItem) *string { return i.GroupLabel },
		func(i models.PurchaseOrderItem) string { return i.Name },
		func(i models.PurchaseOrderItem) int64 { return i.ID },
	)
}
