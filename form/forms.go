package form

import (
	_ "embed"
	"errors"
	"math"
	"strings"
)

var (
	//go:embed schemas/login.json
	loginSchema []byte

	//go:embed schemas/product.json
	productSchema []byte
)

// Login is the login form.
type Login struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims surrounding whitespace from the email.
func (l Login) Normalize() Login {
	l.Email = strings.TrimSpace(l.Email)
	return l
}

// Product is the create-product form. Prices and discount are pointers so an
// untouched field is distinguishable from zero.
type Product struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PriceIn     *float64 `json:"priceIn,omitempty"`
	PriceOut    *float64 `json:"priceOut,omitempty"`
	Discount    *float64 `json:"discount,omitempty"`
}

// Price returns a pointer to v for filling Product fields.
func Price(v float64) *float64 { return &v }

var loginValidator = MustValidator("login", loginSchema,
	Rule{Field: "email", Required: "email is required", Format: "Invalid email"},
	Rule{Field: "password", Required: "password is required"},
)

var productValidator = MustValidator("product", productSchema,
	Rule{Field: "name", Required: "Name is required"},
	Rule{Field: "description", Required: "Description is required"},
	Rule{Field: "priceIn", Required: "Price In is required", Min: "Price must be positive"},
	Rule{Field: "priceOut", Required: "Price Out is required", Min: "Price must be positive"},
	Rule{Field: "discount", Required: "Discount is required", Min: "Discount must be 0 or more"},
)

// ValidateLogin checks the login form.
func ValidateLogin(l Login) error {
	return loginValidator.Validate(l.Normalize())
}

// notANumber is the message for a NaN or infinite price. JSON has no
// encoding for either, so they are caught before the schema runs.
const notANumber = "Price must be a number"

// ValidateProduct checks the product form.
func ValidateProduct(p Product) error {
	var nonFinite []string
	finite := func(field string, v *float64) *float64 {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			nonFinite = append(nonFinite, field)
			return Price(0)
		}
		return v
	}
	p.PriceIn = finite("priceIn", p.PriceIn)
	p.PriceOut = finite("priceOut", p.PriceOut)
	p.Discount = finite("discount", p.Discount)

	err := productValidator.Validate(p)
	if len(nonFinite) == 0 {
		return err
	}
	verr := &ValidationError{Form: productValidator.Name()}
	if err != nil && !errors.As(err, &verr) {
		return err
	}
	for _, field := range nonFinite {
		verr.Fields = append(verr.Fields, FieldError{Field: field, Message: notANumber})
	}
	productValidator.order(verr.Fields)
	return verr
}

// RequireImage is the precondition for product creation.
func RequireImage(present bool) error {
	if present {
		return nil
	}
	return Precondition(ErrImageRequired, "Image is required")
}
