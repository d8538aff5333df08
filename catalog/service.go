package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonwraymond/storeadmin/cache"
	"github.com/jonwraymond/storeadmin/form"
	"github.com/jonwraymond/storeadmin/observe"
	"github.com/jonwraymond/storeadmin/rest"
)

// Service runs the product workflows on top of the API endpoints: client
// checks first, then the requests, with cache invalidation handled by the
// mutations.
type Service struct {
	api      *API
	defaults Defaults
	logger   observe.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithDefaults overrides StandardDefaults.
func WithDefaults(d Defaults) ServiceOption {
	return func(s *Service) { s.defaults = d }
}

// WithLogger sets the service logger.
func WithLogger(l observe.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service over api.
func NewService(api *API, opts ...ServiceOption) *Service {
	s := &Service{
		api:      api,
		defaults: StandardDefaults(),
		logger:   observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// API returns the underlying endpoints.
func (s *Service) API() *API { return s.api }

// Products returns a page of products, cache-first.
func (s *Service) Products(ctx context.Context, req PageRequest) (ProductPage, error) {
	return s.api.Products.Fetch(ctx, req.Normalize())
}

// RefetchProducts fetches a page from the backend regardless of the cache.
func (s *Service) RefetchProducts(ctx context.Context, req PageRequest) (ProductPage, error) {
	return s.api.Products.Refetch(ctx, req.Normalize())
}

// WatchProducts subscribes fn to a page. The entry stays cached until the
// subscription is released.
func (s *Service) WatchProducts(req PageRequest, fn func(cache.QueryResult[ProductPage])) (*cache.Subscription[ProductPage], error) {
	return s.api.Products.Subscribe(req.Normalize(), fn)
}

// Product returns one product by UUID, cache-first.
func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	if err := checkID(id); err != nil {
		return Product{}, err
	}
	return s.api.Product.Fetch(ctx, id)
}

// CreateFromForm creates a product from the create form. A missing image is
// a *form.PreconditionError and an invalid form a *form.ValidationError;
// neither sends anything. Otherwise the image is uploaded and its uri
// becomes the thumbnail.
func (s *Service) CreateFromForm(ctx context.Context, f form.Product, image *rest.File) (Product, error) {
	if err := form.RequireImage(image != nil && len(image.Data) > 0); err != nil {
		return Product{}, err
	}
	if err := form.ValidateProduct(f); err != nil {
		return Product{}, err
	}

	uploaded, err := s.api.Upload.Execute(ctx, []rest.File{*image})
	if err != nil {
		return Product{}, fmt.Errorf("catalog: upload image: %w", err)
	}

	created, err := s.api.Create.Execute(ctx, s.newProduct(f, uploaded.URI))
	if err != nil {
		return Product{}, fmt.Errorf("catalog: create product: %w", err)
	}

	s.logger.Info(ctx, "product created",
		observe.Field{Key: "uuid", Value: created.UUID},
		observe.Field{Key: "name", Value: created.Name},
	)
	return created, nil
}

func (s *Service) newProduct(f form.Product, thumbnail string) Product {
	return Product{
		Name:          f.Name,
		Description:   f.Description,
		PriceIn:       deref(f.PriceIn),
		PriceOut:      deref(f.PriceOut),
		Discount:      deref(f.Discount),
		Thumbnail:     thumbnail,
		ComputerSpec:  placeholderSpec(),
		StockQuantity: 0,
		Color:         []string{},
		Warranty:      "",
		Availability:  true,
		Images:        []string{},
		CategoryUUID:  s.defaults.CategoryUUID,
		SupplierUUID:  s.defaults.SupplierUUID,
		BrandUUID:     s.defaults.BrandUUID,
	}
}

// Update replaces a product. The UUID and the form fields are checked first.
func (s *Service) Update(ctx context.Context, p Product) (Product, error) {
	if err := checkID(p.UUID); err != nil {
		return Product{}, err
	}
	err := form.ValidateProduct(form.Product{
		Name:        p.Name,
		Description: p.Description,
		PriceIn:     form.Price(p.PriceIn),
		PriceOut:    form.Price(p.PriceOut),
		Discount:    form.Price(p.Discount),
	})
	if err != nil {
		return Product{}, err
	}

	updated, err := s.api.Update.Execute(ctx, p)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: update product %s: %w", p.UUID, err)
	}
	return updated, nil
}

// Delete removes a product by UUID.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if _, err := s.api.Delete.Execute(ctx, id); err != nil {
		return fmt.Errorf("catalog: delete product %s: %w", id, err)
	}
	s.logger.Info(ctx, "product deleted", observe.Field{Key: "uuid", Value: id})
	return nil
}

// UploadFiles uploads media without touching product data.
func (s *Service) UploadFiles(ctx context.Context, files []rest.File) (UploadResult, error) {
	return s.api.Upload.Execute(ctx, files)
}

// checkID rejects anything that is not a UUID before a request is built.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &form.ValidationError{
			Form:   "product",
			Fields: []form.FieldError{{Field: "uuid", Message: "Invalid product id"}},
		}
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
