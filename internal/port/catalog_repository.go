package port

import (
	"context"

	"github.com/rl1809/inventory-metafields/internal/core/domain"
)

type CatalogRepository interface {
	// ListProducts returns the page of products following cursor; an empty cursor starts at the beginning
	ListProducts(ctx context.Context, cursor string) (domain.ProductPage, error)

	// ListMetafields returns the metafields stored on a product under namespace
	ListMetafields(ctx context.Context, productID, namespace string) ([]domain.Metafield, error)

	// SetMetafields writes all fields in a single mutation
	SetMetafields(ctx context.Context, fields []domain.Metafield) ([]domain.UserError, error)
}
