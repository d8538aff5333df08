package catalog

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonwraymond/storeadmin/cache"
	"github.com/jonwraymond/storeadmin/rest"
)

// fakeStore is an in-memory storefront backend.
type fakeStore struct {
	mu       sync.Mutex
	products []Product
	calls    []string
	failWith int // status returned by writes when non-zero
	gate     chan struct{}
}

func (f *fakeStore) record(r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Pattern)
	f.mu.Unlock()
}

// count returns how many requests matched pattern, such as "GET /api/products".
func (f *fakeStore) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeStore) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeStore) history() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeStore) seed(names ...string) []Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range names {
		f.products = append(f.products, Product{UUID: uuid.NewString(), Name: n, Description: n})
	}
	return append([]Product(nil), f.products...)
}

func (f *fakeStore) writeFailure(w http.ResponseWriter) bool {
	f.mu.Lock()
	status := f.failWith
	f.mu.Unlock()
	if status == 0 {
		return false
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `{"message":"Product rejected"}`)
	return true
}

func (f *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		gate := f.gate
		f.mu.Unlock()
		if gate != nil {
			<-gate
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))

		f.mu.Lock()
		all := append([]Product(nil), f.products...)
		f.mu.Unlock()

		start := min(page*size, len(all))
		end := min(start+size, len(all))
		totalPages := 0
		if size > 0 {
			totalPages = (len(all) + size - 1) / size
		}
		writeJSON(w, ProductPage{
			Content:       all[start:end],
			Page:          page,
			Size:          size,
			TotalElements: len(all),
			TotalPages:    totalPages,
		})
	})

	mux.HandleFunc("GET /api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, p := range f.products {
			if p.UUID == r.PathValue("id") {
				writeJSON(w, p)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Product not found"}`)
	})

	mux.HandleFunc("POST /api/products", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.writeFailure(w) {
			return
		}
		var p Product
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p.UUID = uuid.NewString()
		f.mu.Lock()
		f.products = append(f.products, p)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, p)
	})

	mux.HandleFunc("PUT /api/products", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.writeFailure(w) {
			return
		}
		var p Product
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.products {
			if f.products[i].UUID == p.UUID {
				f.products[i] = p
				writeJSON(w, p)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	mux.HandleFunc("DELETE /api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.writeFailure(w) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, p := range f.products {
			if p.UUID == r.PathValue("id") {
				f.products = append(f.products[:i], f.products[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	mux.HandleFunc("POST /api/medias/upload-multiple", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		files := r.MultipartForm.File[rest.UploadField]
		if len(files) == 0 {
			http.Error(w, "no files", http.StatusBadRequest)
			return
		}
		writeJSON(w, UploadResult{URI: "https://cdn.shop.test/" + files[0].Filename})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type fixture struct {
	store *fakeStore
	exec  *cache.Executor
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := &fakeStore{}
	srv := httptest.NewServer(fs.handler())
	t.Cleanup(srv.Close)

	client, err := rest.NewClient(rest.Config{BaseURL: srv.URL + "/api"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	exec := cache.NewExecutor(cache.NewStore(cache.DefaultPolicy()))
	t.Cleanup(exec.Wait)

	return &fixture{
		store: fs,
		exec:  exec,
		svc:   NewService(NewAPI(client, exec)),
	}
}
