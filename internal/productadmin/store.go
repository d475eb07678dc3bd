package productadmin

import (
	"context"
	"sync"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// Navigator moves the UI to another page, replacing the current entry.
type Navigator interface {
	Replace(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Replace(path string) { f(path) }

// Store wraps Client with the page state an admin UI binds to. Actions
// record failures in Error rather than retrying.
type Store struct {
	client *Client
	nav    Navigator

	mu      sync.Mutex
	err     string
	loading bool
	updated bool
}

func NewStore(client *Client, nav Navigator) *Store {
	return &Store{client: client, nav: nav}
}

func (s *Store) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) Updated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

func (s *Store) SetUpdated(updated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = updated
}

func (s *Store) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

// UpdateProduct saves product and opens its admin page.
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product, id string) error {
	resp, err := s.client.UpdateProduct(ctx, id, product)
	if err != nil {
		return s.fail(err)
	}
	if resp != nil {
		s.SetUpdated(true)
		s.nav.Replace("/admin/products/" + id)
	}
	return nil
}

// NewProduct creates product and returns to the product list.
func (s *Store) NewProduct(ctx context.Context, product *models.Product) error {
	resp, err := s.client.NewProduct(ctx, product)
	if err != nil {
		return s.fail(err)
	}
	if resp != nil {
		s.nav.Replace("/admin/products")
	}
	return nil
}

// UploadProductImages keeps Loading true while the upload is in flight.
// Loading stays set if the API answers without data.
func (s *Store) UploadProductImages(ctx context.Context, files []ImageFile, id string) error {
	s.setLoading(true)

	resp, err := s.client.UploadProductImages(ctx, id, files)
	if err != nil {
		s.setLoading(false)
		return s.fail(err)
	}
	if resp.HasData() {
		s.setLoading(false)
		s.nav.Replace("/admin/products")
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	resp, err := s.client.DeleteProduct(ctx, id)
	if err != nil {
		return s.fail(err)
	}
	if resp != nil && resp.Success {
		s.nav.Replace("/admin/products")
	}
	return nil
}

// PostReview submits review and opens the reviewed product's page.
func (s *Store) PostReview(ctx context.Context, review *models.ReviewRequest) error {
	resp, err := s.client.PostReview(ctx, review)
	if err != nil {
		return s.fail(err)
	}
	if resp != nil && resp.Success {
		s.nav.Replace("/product/" + review.ProductID)
	}
	return nil
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

// fail stores the API's message, or the transport error when there is none.
func (s *Store) fail(err error) error {
	msg := err.Error()
	if ue, ok := errors.AsUpstreamError(err); ok && ue.StatusCode != 0 && ue.Message != "" {
		msg = ue.Message
	}

	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
	return err
}
