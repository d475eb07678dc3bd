package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
)

func runCLI(t *testing.T, handler http.HandlerFunc, stdin string, args ...string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	cmd := newRootCmd(config.ServiceConfig{BaseURL: srv.URL}, strings.NewReader(stdin), &out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCreateFromStdin(t *testing.T) {
	var gotBody []byte
	out, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/products", r.URL.Path)
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"success":true}`))
	}, `{"name":"Lamp","price":19.99,"stock":3}`, "create")

	require.NoError(t, err)
	assert.Equal(t, "navigate: /admin/products\n", out)
	assert.Contains(t, string(gotBody), `"name":"Lamp"`)
}

func TestUpdateReportsAPIMessage(t *testing.T) {
	_, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"Product not found"}`))
	}, `{"name":"Lamp"}`, "update", "p404")

	require.Error(t, err)
	assert.Equal(t, "Product not found", err.Error())
}

func TestUploadFiles(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "front.jpg")
	require.NoError(t, os.WriteFile(img, []byte("jpeg"), 0o600))

	out, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/products/upload_images/p1", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Len(t, r.MultipartForm.File["images"], 1)
		_, _ = w.Write([]byte(`{"data":[{"url":"http://img/front.jpg"}]}`))
	}, "", "upload", "p1", img)

	require.NoError(t, err)
	assert.Equal(t, "navigate: /admin/products\n", out)
}

func TestReview(t *testing.T) {
	out, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		_, _ = w.Write([]byte(`{"success":true}`))
	}, "", "review", "p7", "--rating", "4", "--comment", "nice")

	require.NoError(t, err)
	assert.Equal(t, "navigate: /product/p7\n", out)

	_, err = runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("API must not be called for an invalid rating")
	}, "", "review", "p7", "--rating", "9")
	assert.Error(t, err)
}

func TestDeleteRequiresID(t *testing.T) {
	_, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {}, "", "delete")
	assert.Error(t, err)
}
