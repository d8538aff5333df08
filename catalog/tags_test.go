package catalog

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jonwraymond/storeadmin/cache"
)

func TestProvidesProductList(t *testing.T) {
	tests := []struct {
		name string
		page ProductPage
		err  error
		want []cache.Tag
	}{
		{
			name: "items and list",
			page: ProductPage{Content: []Product{{UUID: "a"}, {UUID: "b"}}},
			want: []cache.Tag{
				{Type: "Product", ID: "a"},
				{Type: "Product", ID: "b"},
				{Type: "Product", ID: "LIST"},
			},
		},
		{
			name: "empty page still lists",
			page: ProductPage{},
			want: []cache.Tag{{Type: "Product", ID: "LIST"}},
		},
		{
			name: "error provides list only",
			page: ProductPage{Content: []Product{{UUID: "a"}}},
			err:  errors.New("502"),
			want: []cache.Tag{{Type: "Product", ID: "LIST"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProvidesProductList(tt.page, tt.err, PageRequest{})
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("tags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMutationTags(t *testing.T) {
	list := cache.ListTag(TagProduct)
	item := cache.ItemTag(TagProduct, "p1")

	tests := []struct {
		name string
		got  []cache.Tag
		want []cache.Tag
	}{
		{"get by id", ProvidesProduct(Product{}, nil, "p1"), []cache.Tag{item}},
		{"get by id on error", ProvidesProduct(Product{}, errors.New("404"), "p1"), []cache.Tag{item}},
		{"create", InvalidatesOnCreate(Product{}, nil, Product{Name: "Laptop X"}), []cache.Tag{list}},
		{"update", InvalidatesOnUpdate(Product{}, nil, Product{UUID: "p1"}), []cache.Tag{item, list}},
		{"delete", InvalidatesOnDelete(struct{}{}, nil, "p1"), []cache.Tag{item, list}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("tags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreateInvalidatesEveryPage(t *testing.T) {
	pages := [][]cache.Tag{
		ProvidesProductList(ProductPage{Content: []Product{{UUID: "a"}}}, nil, PageRequest{Page: 0}),
		ProvidesProductList(ProductPage{Content: []Product{{UUID: "b"}}}, nil, PageRequest{Page: 1}),
		ProvidesProductList(ProductPage{}, errors.New("down"), PageRequest{Page: 2}),
	}
	inv := InvalidatesOnCreate(Product{}, nil, Product{})
	for i, tags := range pages {
		if !cache.Intersects(tags, inv) {
			t.Errorf("page %d tags %v not invalidated by create", i, tags)
		}
	}
}

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		in, want PageRequest
	}{
		{PageRequest{}, PageRequest{Page: 0, Size: 8}},
		{PageRequest{Page: 2, Size: 20}, PageRequest{Page: 2, Size: 20}},
		{PageRequest{Page: -1, Size: -5}, PageRequest{Page: 0, Size: 8}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseUpload(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "object", body: `{"uri":"https://cdn/a.png"}`, want: "https://cdn/a.png"},
		{name: "wrapped", body: `{"data":{"uri":"https://cdn/b.png"}}`, want: "https://cdn/b.png"},
		{name: "list", body: `[{"uri":"https://cdn/c.png"},{"uri":"https://cdn/d.png"}]`, want: "https://cdn/c.png"},
		{name: "missing", body: `{"name":"a.png"}`, wantErr: true},
		{name: "empty uri", body: `{"uri":""}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUpload([]byte(tt.body))
			if tt.wantErr {
				if !errors.Is(err, ErrNoURI) {
					t.Errorf("parseUpload() error = %v, want ErrNoURI", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseUpload() error = %v", err)
			}
			if got.URI != tt.want {
				t.Errorf("URI = %q, want %q", got.URI, tt.want)
			}
		})
	}
}
