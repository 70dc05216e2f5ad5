package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const variantUpdateMutation = `
mutation updateVariant($input: ProductVariantInput!) {
    productVariantUpdate(input: $input) {
        productVariant {
            id
            price
            compareAtPrice
        }
        userErrors {
            field
            message
        }
    }
}`

const productMetafieldMutation = `
mutation updateMetafield($input: ProductInput!) {
    productUpdate(input: $input) {
        product {
            id
        }
        userErrors {
            field
            message
        }
    }
}`

type gqlUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// UpdateVariantPrice writes a new price and compare-at price to a variant.
func (c *Client) UpdateVariantPrice(ctx context.Context, variantID string, price, compareAt float64) error {
	data, err := c.graphql(ctx, variantUpdateMutation, map[string]interface{}{
		"input": map[string]interface{}{
			"id":             variantGID(variantID),
			"price":          formatPrice(price),
			"compareAtPrice": formatPrice(compareAt),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteWrite, err)
	}

	var result struct {
		ProductVariantUpdate struct {
			UserErrors []gqlUserError `json:"userErrors"`
		} `json:"productVariantUpdate"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("parse variant update response: %w", err)
	}

	if errs := result.ProductVariantUpdate.UserErrors; len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrRemoteWrite, errs[0].Message)
	}
	return nil
}

// UpdateProductMetafield writes a single metafield on a product, used for
// the rate provenance tag on updated products.
func (c *Client) UpdateProductMetafield(ctx context.Context, productID, namespace, key, value, valueType string) error {
	data, err := c.graphql(ctx, productMetafieldMutation, map[string]interface{}{
		"input": map[string]interface{}{
			"id": productGID(productID),
			"metafields": []map[string]string{{
				"namespace": namespace,
				"key":       key,
				"value":     value,
				"type":      valueType,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteWrite, err)
	}

	var result struct {
		ProductUpdate struct {
			UserErrors []gqlUserError `json:"userErrors"`
		} `json:"productUpdate"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("parse metafield update response: %w", err)
	}

	if errs := result.ProductUpdate.UserErrors; len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrRemoteWrite, errs[0].Message)
	}
	return nil
}

// formatPrice renders a price the way the Admin API expects it.
func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func variantGID(id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/ProductVariant/" + id
}

func productGID(id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/Product/" + id
}
