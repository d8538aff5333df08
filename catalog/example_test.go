package catalog_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/storeadmin/cache"
	"github.com/jonwraymond/storeadmin/catalog"
	"github.com/jonwraymond/storeadmin/form"
	"github.com/jonwraymond/storeadmin/rest"
)

func ExampleService_CreateFromForm_missingImage() {
	client, _ := rest.NewClient(rest.Config{BaseURL: "http://127.0.0.1:1"})
	svc := catalog.NewService(catalog.NewAPI(client, cache.NewExecutor(nil)))

	_, err := svc.CreateFromForm(context.Background(), form.Product{Name: "Laptop X"}, nil)

	var perr *form.PreconditionError
	fmt.Println(errors.As(err, &perr), perr.Reason)
	// Output: true Image is required
}

func ExampleProvidesProductList() {
	page := catalog.ProductPage{Content: []catalog.Product{{UUID: "a"}, {UUID: "b"}}}
	fmt.Println(catalog.ProvidesProductList(page, nil, catalog.PageRequest{}))
	// Output: [Product:a Product:b Product:LIST]
}
