package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jonwraymond/storeadmin/cache"
	"github.com/jonwraymond/storeadmin/rest"
	"github.com/tidwall/gjson"
)

// Routes of the storefront backend.
const (
	RouteProducts = "/products"
	RouteProduct  = "/products/{id}"
	RouteUpload   = "/medias/upload-multiple"
)

// ErrNoURI is returned when an upload response carries no uri.
var ErrNoURI = errors.New("catalog: upload response has no uri")

// API holds the product and media endpoints bound to one cache executor.
type API struct {
	Products *cache.QueryEndpoint[PageRequest, ProductPage]
	Product  *cache.QueryEndpoint[string, Product]
	Create   *cache.MutationEndpoint[Product, Product]
	Update   *cache.MutationEndpoint[Product, Product]
	Delete   *cache.MutationEndpoint[string, struct{}]
	Upload   *cache.MutationEndpoint[[]rest.File, UploadResult]
}

// NewAPI defines the endpoints against client and exec.
func NewAPI(client *rest.Client, exec *cache.Executor) *API {
	return &API{
		Products: cache.NewQuery(exec, cache.QueryDef[PageRequest, ProductPage]{
			Name: "getProducts",
			Fetch: func(ctx context.Context, req PageRequest) (ProductPage, error) {
				var page ProductPage
				query := url.Values{
					"page": {strconv.Itoa(req.Page)},
					"size": {strconv.Itoa(req.Size)},
				}
				err := client.Get(ctx, "getProducts", RouteProducts, query, &page)
				return page, err
			},
			ProvidesTags: ProvidesProductList,
		}),

		Product: cache.NewQuery(exec, cache.QueryDef[string, Product]{
			Name: "getProductById",
			Fetch: func(ctx context.Context, id string) (Product, error) {
				var p Product
				err := client.Get(ctx, "getProductById", RouteProduct, nil, &p, id)
				return p, err
			},
			ProvidesTags: ProvidesProduct,
		}),

		Create: cache.NewMutation(exec, cache.MutationDef[Product, Product]{
			Name: "createProduct",
			Do: func(ctx context.Context, p Product) (Product, error) {
				var created Product
				if err := client.Post(ctx, "createProduct", RouteProducts, p, &created); err != nil {
					return Product{}, err
				}
				return orRequest(created, p), nil
			},
			InvalidatesTags: InvalidatesOnCreate,
		}),

		Update: cache.NewMutation(exec, cache.MutationDef[Product, Product]{
			Name: "updateProduct",
			Do: func(ctx context.Context, p Product) (Product, error) {
				var updated Product
				if err := client.Put(ctx, "updateProduct", RouteProducts, p, &updated); err != nil {
					return Product{}, err
				}
				return orRequest(updated, p), nil
			},
			InvalidatesTags: InvalidatesOnUpdate,
		}),

		Delete: cache.NewMutation(exec, cache.MutationDef[string, struct{}]{
			Name: "deleteProduct",
			Do: func(ctx context.Context, uuid string) (struct{}, error) {
				return struct{}{}, client.Delete(ctx, "deleteProduct", RouteProduct, nil, uuid)
			},
			InvalidatesTags: InvalidatesOnDelete,
		}),

		Upload: cache.NewMutation(exec, cache.MutationDef[[]rest.File, UploadResult]{
			Name: "uploadFiles",
			Do: func(ctx context.Context, files []rest.File) (UploadResult, error) {
				var raw json.RawMessage
				if err := client.Upload(ctx, "uploadFiles", RouteUpload, files, &raw); err != nil {
					return UploadResult{}, err
				}
				return parseUpload(raw)
			},
		}),
	}
}

// orRequest returns the server's echo of a write, or what was sent when the
// server answered without a body.
func orRequest(resp, sent Product) Product {
	if resp.UUID == "" && resp.Name == "" {
		return sent
	}
	return resp
}

var uriPaths = []string{"uri", "data.uri", "0.uri"}

// parseUpload accepts {"uri":...}, {"data":{"uri":...}} or a list of such
// objects, taking the first.
func parseUpload(raw []byte) (UploadResult, error) {
	for _, path := range uriPaths {
		if r := gjson.GetBytes(raw, path); r.Type == gjson.String && r.Str != "" {
			return UploadResult{URI: r.Str}, nil
		}
	}
	return UploadResult{}, fmt.Errorf("%w: %s", ErrNoURI, truncate(raw, 128))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
