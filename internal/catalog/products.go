package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// productsQuery pages through products with their metafields and variants.
const productsQuery = `
query getProducts($cursor: String, $query: String) {
    products(first: 50, after: $cursor, query: $query) {
        pageInfo {
            hasNextPage
            endCursor
        }
        edges {
            node {
                id
                handle
                title
                productType
                metafields(first: 50) {
                    edges {
                        node {
                            namespace
                            key
                            value
                            type
                        }
                    }
                }
                variants(first: 100) {
                    edges {
                        node {
                            id
                            title
                            price
                            compareAtPrice
                            sku
                            metafields(first: 20) {
                                edges {
                                    node {
                                        namespace
                                        key
                                        value
                                        type
                                    }
                                }
                            }
                        }
                    }
                }
            }
        }
    }
}`

type gqlMetafieldConn struct {
	Edges []struct {
		Node struct {
			Namespace string `json:"namespace"`
			Key       string `json:"key"`
			Value     string `json:"value"`
			Type      string `json:"type"`
		} `json:"node"`
	} `json:"edges"`
}

type gqlProductsPage struct {
	Products struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node struct {
				ID          string           `json:"id"`
				Handle      string           `json:"handle"`
				Title       string           `json:"title"`
				ProductType string           `json:"productType"`
				Metafields  gqlMetafieldConn `json:"metafields"`
				Variants    struct {
					Edges []struct {
						Node struct {
							ID             string           `json:"id"`
							Title          string           `json:"title"`
							Price          string           `json:"price"`
							CompareAtPrice string           `json:"compareAtPrice"`
							SKU            string           `json:"sku"`
							Metafields     gqlMetafieldConn `json:"metafields"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"variants"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

// ListProducts fetches all products with their metafields and variants,
// following cursor pagination until exhausted. When handles are given only
// those products are fetched.
func (c *Client) ListProducts(ctx context.Context, handles []string) ([]Product, error) {
	var products []Product
	var cursor string

	for {
		variables := map[string]interface{}{}
		if cursor != "" {
			variables["cursor"] = cursor
		}
		if len(handles) > 0 {
			queries := make([]string, len(handles))
			for i, h := range handles {
				queries[i] = "handle:" + h
			}
			variables["query"] = strings.Join(queries, " OR ")
		}

		data, err := c.graphql(ctx, productsQuery, variables)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}

		var page gqlProductsPage
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("parse products page: %w", err)
		}

		for _, edge := range page.Products.Edges {
			node := edge.Node
			p := Product{
				ID:          node.ID,
				Handle:      node.Handle,
				Title:       node.Title,
				ProductType: node.ProductType,
				Metafields:  flattenMetafields(node.Metafields),
			}
			for _, ve := range node.Variants.Edges {
				vn := ve.Node
				p.Variants = append(p.Variants, Variant{
					ID:             vn.ID,
					Title:          vn.Title,
					SKU:            vn.SKU,
					Price:          vn.Price,
					CompareAtPrice: vn.CompareAtPrice,
					Metafields:     flattenMetafields(vn.Metafields),
				})
			}
			products = append(products, p)
		}

		if !page.Products.PageInfo.HasNextPage {
			break
		}
		cursor = page.Products.PageInfo.EndCursor
	}

	c.logger.WithField("count", len(products)).Debug("Fetched products")
	return products, nil
}

func flattenMetafields(conn gqlMetafieldConn) []Metafield {
	if len(conn.Edges) == 0 {
		return nil
	}

	out := make([]Metafield, 0, len(conn.Edges))
	for _, edge := range conn.Edges {
		out = append(out, Metafield{
			Namespace: edge.Node.Namespace,
			Key:       edge.Node.Key,
			Value:     edge.Node.Value,
			Type:      edge.Node.Type,
		})
	}
	return out
}
