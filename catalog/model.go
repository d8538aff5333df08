package catalog

// ComputerSpec is the hardware description attached to a product.
type ComputerSpec struct {
	Processor  string `json:"processor"`
	RAM        string `json:"ram"`
	Storage    string `json:"storage"`
	GPU        string `json:"gpu"`
	OS         string `json:"os"`
	ScreenSize string `json:"screenSize"`
	Battery    string `json:"battery"`
}

// Product is the backend's product resource.
type Product struct {
	UUID          string       `json:"uuid,omitempty"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	PriceIn       float64      `json:"priceIn"`
	PriceOut      float64      `json:"priceOut"`
	Discount      float64      `json:"discount"`
	Thumbnail     string       `json:"thumbnail"`
	ComputerSpec  ComputerSpec `json:"computerSpec"`
	StockQuantity int          `json:"stockQuantity"`
	Color         []string     `json:"color"`
	Warranty      string       `json:"warranty"`
	Availability  bool         `json:"availability"`
	Images        []string     `json:"images"`
	CategoryUUID  string       `json:"categoryUuid"`
	SupplierUUID  string       `json:"supplierUuid"`
	BrandUUID     string       `json:"brandUuid"`
}

// ProductPage is one page of GET /products.
type ProductPage struct {
	Content       []Product `json:"content"`
	Page          int       `json:"page"`
	Size          int       `json:"size"`
	TotalElements int       `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
}

// Names returns the product names on the page, in order.
func (p ProductPage) Names() []string {
	names := make([]string, len(p.Content))
	for i, prod := range p.Content {
		names[i] = prod.Name
	}
	return names
}

// UploadResult is the media service's answer to an upload.
type UploadResult struct {
	URI string `json:"uri"`
}

// DefaultPageSize is the page size used when none is given.
const DefaultPageSize = 8

// PageRequest selects a page of products. Each distinct pair is its own
// cache entry.
type PageRequest struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// Normalize applies the defaults: page 0, size DefaultPageSize.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Size <= 0 {
		r.Size = DefaultPageSize
	}
	return r
}

// Defaults are the fields the create form does not collect.
type Defaults struct {
	CategoryUUID string
	SupplierUUID string
	BrandUUID    string
}

// StandardDefaults returns the category, supplier and brand every product
// created from the form is filed under unless configured otherwise.
func StandardDefaults() Defaults {
	return Defaults{
		CategoryUUID: "eb115ca4-a6b2-43f7-aa59-2def7e30dd7b",
		SupplierUUID: "fd9d42e3-3afc-43a8-8eb4-7cb4c1c9b411",
		BrandUUID:    "8620f990-ef33-495c-b38c-236da90c9b46",
	}
}

// NotAvailable fills computer spec fields the form does not ask for.
const NotAvailable = "N/A"

func placeholderSpec() ComputerSpec {
	return ComputerSpec{
		Processor:  NotAvailable,
		RAM:        NotAvailable,
		Storage:    NotAvailable,
		GPU:        NotAvailable,
		OS:         NotAvailable,
		ScreenSize: NotAvailable,
		Battery:    NotAvailable,
	}
}
