// Package catalog defines the product and media endpoints of the storefront
// backend on top of the query cache.
//
// Product lists provide a tag per product plus the (Product, LIST) tag;
// single-product queries provide (Product, id). Creating a product
// invalidates the list, updating or deleting one invalidates that product
// and the list. Uploads invalidate nothing.
//
// Service adds the workflows: the create form is checked locally (image
// present, fields valid) before the image upload and the create request are
// sent, in that order.
package catalog
