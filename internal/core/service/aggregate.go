package service

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rl1809/inventory-metafields/internal/core/domain"
)

// Aggregate sums available stock of a product per tracked location. Location
// names match exactly; levels at any other location are ignored.
func Aggregate(product domain.Product, locations domain.Locations) domain.Quantities {
	var q domain.Quantities
	for _, variant := range capped(product.Variants, domain.VariantsPerProduct) {
		for _, level := range capped(variant.InventoryItem.Levels, domain.LevelsPerItem) {
			switch level.Location.Name {
			case locations.Warehouse:
				q.Warehouse += level.Available
			case locations.Vendor:
				q.Vendor += level.Available
			}
		}
	}
	return q
}

// CurrentQuantities extracts the stored quantities from a product's
// metafields. Missing or malformed values read as 0.
func CurrentQuantities(fields []domain.Metafield, keys domain.MetafieldKeys) domain.Quantities {
	var q domain.Quantities
	for _, field := range capped(fields, domain.MetafieldsPerOwner) {
		switch field.Key {
		case keys.Warehouse:
			q.Warehouse = ParseQuantity(field.Value)
		case keys.Vendor:
			q.Vendor = ParseQuantity(field.Value)
		}
	}
	return q
}

// ParseQuantity reads the leading base-10 integer of s. Leading whitespace
// and a sign are accepted, trailing garbage is dropped ("12abc" is 12), and
// anything without a leading digit or out of int range is 0.
func ParseQuantity(s string) int {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// QuantityMetafields builds the two integer metafields that store q on a product.
func QuantityMetafields(productID string, q domain.Quantities, keys domain.MetafieldKeys) []domain.Metafield {
	return []domain.Metafield{
		{
			OwnerID:   productID,
			Namespace: keys.Namespace,
			Key:       keys.Warehouse,
			Value:     strconv.Itoa(q.Warehouse),
			Type:      domain.MetafieldTypeInt,
		},
		{
			OwnerID:   productID,
			Namespace: keys.Namespace,
			Key:       keys.Vendor,
			Value:     strconv.Itoa(q.Vendor),
			Type:      domain.MetafieldTypeInt,
		},
	}
}

func capped[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
