package form

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateLogin(t *testing.T) {
	tests := []struct {
		name string
		form Login
		want []FieldError
	}{
		{
			name: "valid",
			form: Login{Email: "admin@shop.test", Password: "secret"},
		},
		{
			name: "empty password",
			form: Login{Email: "admin@shop.test"},
			want: []FieldError{{Field: "password", Message: "password is required"}},
		},
		{
			name: "empty form",
			form: Login{},
			want: []FieldError{
				{Field: "email", Message: "email is required"},
				{Field: "password", Message: "password is required"},
			},
		},
		{
			name: "bad email",
			form: Login{Email: "not-an-email", Password: "secret"},
			want: []FieldError{{Field: "email", Message: "Invalid email"}},
		},
		{
			name: "email is trimmed",
			form: Login{Email: "  admin@shop.test ", Password: "secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLogin(tt.form)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("ValidateLogin() error = %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateLogin() error = %v, want *ValidationError", err)
			}
			if verr.Form != "login" {
				t.Errorf("Form = %q, want login", verr.Form)
			}
			if diff := cmp.Diff(tt.want, verr.Fields); diff != "" {
				t.Errorf("Fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateProduct(t *testing.T) {
	valid := Product{
		Name:        "Laptop X",
		Description: "14 inch",
		PriceIn:     Price(800),
		PriceOut:    Price(999),
		Discount:    Price(0),
	}

	tests := []struct {
		name   string
		mutate func(p *Product)
		want   []FieldError
	}{
		{name: "valid", mutate: func(p *Product) {}},
		{
			name:   "zero prices allowed",
			mutate: func(p *Product) { p.PriceIn = Price(0); p.PriceOut = Price(0) },
		},
		{
			name:   "missing name",
			mutate: func(p *Product) { p.Name = "" },
			want:   []FieldError{{Field: "name", Message: "Name is required"}},
		},
		{
			name:   "negative price",
			mutate: func(p *Product) { p.PriceOut = Price(-1) },
			want:   []FieldError{{Field: "priceOut", Message: "Price must be positive"}},
		},
		{
			name:   "negative discount",
			mutate: func(p *Product) { p.Discount = Price(-5) },
			want:   []FieldError{{Field: "discount", Message: "Discount must be 0 or more"}},
		},
		{
			name:   "missing price",
			mutate: func(p *Product) { p.PriceIn = nil },
			want:   []FieldError{{Field: "priceIn", Message: "Price In is required"}},
		},
		{
			name:   "NaN price",
			mutate: func(p *Product) { p.PriceIn = Price(math.NaN()) },
			want:   []FieldError{{Field: "priceIn", Message: "Price must be a number"}},
		},
		{
			name: "infinite price with other errors",
			mutate: func(p *Product) {
				p.Name = ""
				p.Discount = Price(math.Inf(-1))
				p.PriceOut = Price(-1)
			},
			want: []FieldError{
				{Field: "name", Message: "Name is required"},
				{Field: "priceOut", Message: "Price must be positive"},
				{Field: "discount", Message: "Price must be a number"},
			},
		},
		{
			name:   "empty form",
			mutate: func(p *Product) { *p = Product{} },
			want: []FieldError{
				{Field: "name", Message: "Name is required"},
				{Field: "description", Message: "Description is required"},
				{Field: "priceIn", Message: "Price In is required"},
				{Field: "priceOut", Message: "Price Out is required"},
				{Field: "discount", Message: "Discount is required"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)

			err := ValidateProduct(p)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("ValidateProduct() error = %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateProduct() error = %v, want *ValidationError", err)
			}
			if diff := cmp.Diff(tt.want, verr.Fields); diff != "" {
				t.Errorf("Fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Form: "login",
		Fields: []FieldError{
			{Field: "email", Message: "email is required"},
			{Field: "password", Message: "password is required"},
		},
	}

	want := "form: login: email is required; password is required"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if msg, ok := err.Message("password"); !ok || msg != "password is required" {
		t.Errorf("Message(password) = %q, %v", msg, ok)
	}
	if _, ok := err.Message("name"); ok {
		t.Error("Message(name) should not be found")
	}
}

func TestRequireImage(t *testing.T) {
	if err := RequireImage(true); err != nil {
		t.Errorf("RequireImage(true) = %v", err)
	}

	err := RequireImage(false)
	var perr *PreconditionError
	if !errors.As(err, &perr) {
		t.Fatalf("RequireImage(false) = %v, want *PreconditionError", err)
	}
	if perr.Reason != "Image is required" {
		t.Errorf("Reason = %q", perr.Reason)
	}
	if !errors.Is(err, ErrImageRequired) {
		t.Error("error should wrap ErrImageRequired")
	}
}

func TestIsLocal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation", ValidateLogin(Login{}), true},
		{"precondition", RequireImage(false), true},
		{"network", errors.New("dial tcp: connection refused"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLocal(tt.err); got != tt.want {
				t.Errorf("IsLocal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewValidator_InvalidSchema(t *testing.T) {
	tests := []struct {
		name   string
		schema string
	}{
		{"not json", `{`},
		{"bad keyword type", `{"type": 42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewValidator("broken", []byte(tt.schema))
			if !errors.Is(err, ErrInvalidSchema) {
				t.Errorf("NewValidator() error = %v, want ErrInvalidSchema", err)
			}
		})
	}
}

func TestValidator_GenericMessages(t *testing.T) {
	v := MustValidator("note", []byte(`{
		"type": "object",
		"required": ["title"],
		"properties": {"title": {"type": "string"}}
	}`))

	err := v.Validate(map[string]any{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v", err)
	}
	want := []FieldError{{Field: "title", Message: "title is required"}}
	if diff := cmp.Diff(want, verr.Fields); diff != "" {
		t.Errorf("Fields mismatch (-want +got):\n%s", diff)
	}
}
