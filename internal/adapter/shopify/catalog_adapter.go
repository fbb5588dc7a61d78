package shopify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rl1809/inventory-metafields/internal/core/domain"
	"github.com/rl1809/inventory-metafields/internal/port"
)

var ErrProductNotFound = errors.New("product not found")

type pageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

type locationNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type inventoryLevelNode struct {
	Location  locationNode `json:"location"`
	Available *int         `json:"available"`
}

type inventoryItemNode struct {
	ID              string `json:"id"`
	InventoryLevels struct {
		Edges []struct {
			Node inventoryLevelNode `json:"node"`
		} `json:"edges"`
	} `json:"inventoryLevels"`
}

type variantNode struct {
	ID            string             `json:"id"`
	InventoryItem *inventoryItemNode `json:"inventoryItem"`
}

type productNode struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Variants struct {
		Edges []struct {
			Node variantNode `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

type productsData struct {
	Products struct {
		Edges []struct {
			Node productNode `json:"node"`
		} `json:"edges"`
		PageInfo pageInfo `json:"pageInfo"`
	} `json:"products"`
}

type metafieldNode struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

type metafieldsData struct {
	Product *struct {
		Metafields struct {
			Edges []struct {
				Node metafieldNode `json:"node"`
			} `json:"edges"`
		} `json:"metafields"`
	} `json:"product"`
}

type metafieldsSetInput struct {
	OwnerID   string `json:"ownerId"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type metafieldsSetData struct {
	MetafieldsSet struct {
		UserErrors []userError `json:"userErrors"`
	} `json:"metafieldsSet"`
}

// CatalogAdapter implements port.CatalogRepository on the Admin GraphQL API.
type CatalogAdapter struct {
	client *Client
}

var _ port.CatalogRepository = (*CatalogAdapter)(nil)

func NewCatalogAdapter(client *Client) *CatalogAdapter {
	return &CatalogAdapter{client: client}
}

func (a *CatalogAdapter) ListProducts(ctx context.Context, cursor string) (domain.ProductPage, error) {
	vars := map[string]any{
		"first":    domain.ProductsPerPage,
		"after":    nil,
		"variants": domain.VariantsPerProduct,
		"levels":   domain.LevelsPerItem,
	}
	if cursor != "" {
		vars["after"] = cursor
	}

	var data productsData
	if err := a.client.Do(ctx, productsQuery, vars, &data); err != nil {
		return domain.ProductPage{}, fmt.Errorf("query products: %w", err)
	}

	page := domain.ProductPage{
		Products: make([]domain.Product, 0, len(data.Products.Edges)),
		PageInfo: domain.PageInfo{HasNextPage: data.Products.PageInfo.HasNextPage},
	}
	if data.Products.PageInfo.EndCursor != nil {
		page.PageInfo.EndCursor = *data.Products.PageInfo.EndCursor
	}
	for _, edge := range data.Products.Edges {
		page.Products = append(page.Products, toProduct(edge.Node))
	}
	return page, nil
}

func (a *CatalogAdapter) ListMetafields(ctx context.Context, productID, namespace string) ([]domain.Metafield, error) {
	vars := map[string]any{
		"id":        productID,
		"namespace": namespace,
		"first":     domain.MetafieldsPerOwner,
	}

	var data metafieldsData
	if err := a.client.Do(ctx, productMetafieldsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("query metafields: %w", err)
	}
	if data.Product == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}

	fields := make([]domain.Metafield, 0, len(data.Product.Metafields.Edges))
	for _, edge := range data.Product.Metafields.Edges {
		fields = append(fields, domain.Metafield{
			OwnerID:   productID,
			Namespace: edge.Node.Namespace,
			Key:       edge.Node.Key,
			Value:     edge.Node.Value,
			Type:      edge.Node.Type,
		})
	}
	return fields, nil
}

func (a *CatalogAdapter) SetMetafields(ctx context.Context, fields []domain.Metafield) ([]domain.UserError, error) {
	inputs := make([]metafieldsSetInput, 0, len(fields))
	for _, f := range fields {
		inputs = append(inputs, metafieldsSetInput{
			OwnerID:   f.OwnerID,
			Namespace: f.Namespace,
			Key:       f.Key,
			Value:     f.Value,
			Type:      f.Type,
		})
	}

	var data metafieldsSetData
	if err := a.client.Do(ctx, metafieldsSetMutation, map[string]any{"metafields": inputs}, &data); err != nil {
		return nil, fmt.Errorf("metafieldsSet: %w", err)
	}

	var userErrs []domain.UserError
	for _, ue := range data.MetafieldsSet.UserErrors {
		userErrs = append(userErrs, domain.UserError{Field: ue.Field, Message: ue.Message})
	}
	return userErrs, nil
}

func toProduct(node productNode) domain.Product {
	product := domain.Product{
		ID:       node.ID,
		Title:    node.Title,
		Variants: make([]domain.Variant, 0, len(node.Variants.Edges)),
	}
	for _, edge := range node.Variants.Edges {
		variant := domain.Variant{ID: edge.Node.ID}
		if item := edge.Node.InventoryItem; item != nil {
			variant.InventoryItem.ID = item.ID
			for _, lvl := range item.InventoryLevels.Edges {
				level := domain.InventoryLevel{
					Location: domain.Location{ID: lvl.Node.Location.ID, Name: lvl.Node.Location.Name},
				}
				if lvl.Node.Available != nil {
					level.Available = *lvl.Node.Available
				}
				variant.InventoryItem.Levels = append(variant.InventoryItem.Levels, level)
			}
		}
		product.Variants = append(product.Variants, variant)
	}
	return product
}
