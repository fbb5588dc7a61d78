package domain

// Upstream query limits. Anything past them is dropped silently.
const (
	ProductsPerPage     = 100
	VariantsPerProduct  = 50
	LevelsPerItem       = 5
	MetafieldsPerOwner  = 30
	MetafieldTypeInt    = "number_integer"
	DefaultNamespace    = "custom"
	DefaultWarehouseKey = "omaha_product_inventory"
	DefaultVendorKey    = "vendor_product_inventory"
)

type Product struct {
	ID       string
	Title    string
	Variants []Variant
}

type Variant struct {
	ID            string
	InventoryItem InventoryItem
}

type InventoryItem struct {
	ID     string
	Levels []InventoryLevel
}

type InventoryLevel struct {
	Location  Location
	Available int
}

type Location struct {
	ID   string
	Name string
}

// PageInfo describes the position of a product page. An empty cursor
// means the first page.
type PageInfo struct {
	HasNextPage bool
	EndCursor   string
}

type ProductPage struct {
	Products []Product
	PageInfo PageInfo
}

type Metafield struct {
	OwnerID   string
	Namespace string
	Key       string
	Value     string
	Type      string
}

// UserError is a field-level error reported by a mutation.
type UserError struct {
	Field   []string
	Message string
}

// Quantities is the warehouse/vendor stock pair tracked per product.
type Quantities struct {
	Warehouse int
	Vendor    int
}

// Locations names the two stock locations that count towards Quantities.
type Locations struct {
	Warehouse string
	Vendor    string
}

// MetafieldKeys names where Quantities are stored on a product.
type MetafieldKeys struct {
	Namespace string
	Warehouse string
	Vendor    string
}
