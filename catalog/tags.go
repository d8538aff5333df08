package catalog

import "github.com/jonwraymond/storeadmin/cache"

// TagProduct is the tag type of product data.
const TagProduct = "Product"

// ProvidesProductList tags a page with every product on it plus the list
// tag. A failed fetch still provides the list tag so that a later create
// refreshes it.
func ProvidesProductList(page ProductPage, err error, _ PageRequest) []cache.Tag {
	if err != nil {
		return []cache.Tag{cache.ListTag(TagProduct)}
	}
	tags := make([]cache.Tag, 0, len(page.Content)+1)
	for _, p := range page.Content {
		tags = append(tags, cache.ItemTag(TagProduct, p.UUID))
	}
	return append(tags, cache.ListTag(TagProduct))
}

// ProvidesProduct tags a single-product query with the requested ID.
func ProvidesProduct(_ Product, _ error, id string) []cache.Tag {
	return []cache.Tag{cache.ItemTag(TagProduct, id)}
}

// InvalidatesOnCreate refreshes product lists after a create.
func InvalidatesOnCreate(Product, error, Product) []cache.Tag {
	return []cache.Tag{cache.ListTag(TagProduct)}
}

// InvalidatesOnUpdate refreshes the updated product and product lists.
func InvalidatesOnUpdate(_ Product, _ error, arg Product) []cache.Tag {
	return []cache.Tag{cache.ItemTag(TagProduct, arg.UUID), cache.ListTag(TagProduct)}
}

// InvalidatesOnDelete refreshes the deleted product and product lists.
func InvalidatesOnDelete(_ struct{}, _ error, uuid string) []cache.Tag {
	return []cache.Tag{cache.ItemTag(TagProduct, uuid), cache.ListTag(TagProduct)}
}
