package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhango/pricesync/pkg/config"
	"github.com/jhango/pricesync/pkg/httputil"
	"github.com/jhango/pricesync/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Shopify.ShopURL = server.URL
	cfg.Shopify.AccessToken = "test-token"
	cfg.Shopify.APIVersion = "2024-01"
	cfg.Shopify.RateLimitRPS = 100
	cfg.Shopify.RateBurst = 100

	log := logger.NewNop()
	return NewClient(cfg, httputil.New(log).DisableRetry(), log), server
}

func productPage(hasNext bool, cursor string, handles ...string) map[string]interface{} {
	edges := make([]map[string]interface{}, 0, len(handles))
	for i, h := range handles {
		edges = append(edges, map[string]interface{}{
			"node": map[string]interface{}{
				"id":     fmt.Sprintf("gid://shopify/Product/%d", i+1),
				"handle": h,
				"title":  "Product " + h,
				"metafields": map[string]interface{}{
					"edges": []map[string]interface{}{
						{"node": map[string]interface{}{
							"namespace": "custom", "key": "metal_weight", "value": "10", "type": "number_decimal",
						}},
					},
				},
				"variants": map[string]interface{}{
					"edges": []map[string]interface{}{
						{"node": map[string]interface{}{
							"id": "gid://shopify/ProductVariant/99", "title": "18KT", "price": "81885.00",
						}},
					},
				},
			},
		})
	}
	return map[string]interface{}{
		"data": map[string]interface{}{
			"products": map[string]interface{}{
				"pageInfo": map[string]interface{}{"hasNextPage": hasNext, "endCursor": cursor},
				"edges":    edges,
			},
		},
	}
}

func TestListProductsPagination(t *testing.T) {
	var requests []map[string]interface{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/graphql.json", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Shopify-Access-Token"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requests = append(requests, body)

		var page map[string]interface{}
		if len(requests) == 1 {
			page = productPage(true, "cur1", "ring-a", "ring-b")
		} else {
			page = productPage(false, "", "ring-c")
		}
		json.NewEncoder(w).Encode(page)
	})

	client, _ := newTestClient(t, handler)

	products, err := client.ListProducts(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, products, 3)
	require.Len(t, requests, 2)

	assert.Equal(t, "ring-a", products[0].Handle)
	assert.Equal(t, "ring-c", products[2].Handle)
	assert.Equal(t, "18KT", products[0].Variants[0].Title)
	assert.Equal(t, "10", products[0].Metafields[0].Value)

	// Second request carries the cursor from the first page.
	vars, _ := requests[1]["variables"].(map[string]interface{})
	assert.Equal(t, "cur1", vars["cursor"])
}

func TestListProductsHandleFilter(t *testing.T) {
	var gotQuery string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if vars, ok := body["variables"].(map[string]interface{}); ok {
			gotQuery, _ = vars["query"].(string)
		}
		json.NewEncoder(w).Encode(productPage(false, "", "ring-a"))
	})

	client, _ := newTestClient(t, handler)

	_, err := client.ListProducts(context.Background(), []string{"ring-a", "ring-b"})
	require.NoError(t, err)
	assert.Equal(t, "handle:ring-a OR handle:ring-b", gotQuery)
}

func TestUpdateVariantPrice(t *testing.T) {
	var input map[string]interface{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		vars := body["variables"].(map[string]interface{})
		input = vars["input"].(map[string]interface{})

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"productVariantUpdate": map[string]interface{}{
					"productVariant": map[string]interface{}{"id": input["id"]},
					"userErrors":     []interface{}{},
				},
			},
		})
	})

	client, _ := newTestClient(t, handler)

	err := client.UpdateVariantPrice(context.Background(), "99", 81885, 102356.25)
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/ProductVariant/99", input["id"])
	assert.Equal(t, "81885.00", input["price"])
	assert.Equal(t, "102356.25", input["compareAtPrice"])
}

func TestUpdateVariantPriceUserError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"productVariantUpdate": map[string]interface{}{
					"userErrors": []map[string]interface{}{
						{"field": []string{"price"}, "message": "Price must be positive"},
					},
				},
			},
		})
	})

	client, _ := newTestClient(t, handler)

	err := client.UpdateVariantPrice(context.Background(), "99", -1, 0)
	assert.ErrorIs(t, err, ErrRemoteWrite)
	assert.Contains(t, err.Error(), "Price must be positive")
}

func TestGraphQLErrorSurfaces(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{{"message": "Throttled"}},
		})
	})

	client, _ := newTestClient(t, handler)

	_, err := client.ListProducts(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Throttled")
}

func TestShopBaseURL(t *testing.T) {
	assert.Equal(t, "https://shop.myshopify.com/admin/api/2024-01",
		shopBaseURL("shop.myshopify.com", "2024-01"))
	assert.Equal(t, "https://shop.myshopify.com/admin/api/2024-01",
		shopBaseURL("https://shop.myshopify.com/", "2024-01"))
	assert.Equal(t, "http://127.0.0.1:8080/admin/api/2024-01",
		shopBaseURL("http://127.0.0.1:8080", "2024-01"))
}
