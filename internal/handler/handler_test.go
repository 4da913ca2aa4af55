package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-retail-catalog/internal/apperr"
	"go-retail-catalog/internal/importer"
	"go-retail-catalog/internal/model"
	"go-retail-catalog/internal/repository"
	"go-retail-catalog/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImportService struct {
	preview    *service.PreviewResult
	previewErr error
	gotPreview service.PreviewRequest
	gotCaller  importer.Caller
	outcome    importer.Outcome
	gotConfirm service.ConfirmRequest
	batch      *model.ImportBatch
	batchErr   error
}

func (f *fakeImportService) Preview(_ context.Context, req service.PreviewRequest, caller importer.Caller) (*service.PreviewResult, error) {
	f.gotPreview = req
	f.gotCaller = caller
	return f.preview, f.previewErr
}

func (f *fakeImportService) Confirm(_ context.Context, req service.ConfirmRequest, caller importer.Caller) importer.Outcome {
	f.gotConfirm = req
	f.gotCaller = caller
	return f.outcome
}

func (f *fakeImportService) Batch(context.Context, string) (*model.ImportBatch, error) {
	return f.batch, f.batchErr
}

func (f *fakeImportService) Sweep(context.Context) (int64, error) { return 0, nil }

type fakeCatalogService struct {
	service.CatalogService
	err     error
	product *model.Product
	gotRaw  importer.RawRow
	allow   bool
}

func (f *fakeCatalogService) CreateProduct(_ context.Context, raw importer.RawRow, allow bool, _ importer.Caller) (*model.Product, error) {
	f.gotRaw = raw
	f.allow = allow
	return f.product, f.err
}

func (f *fakeCatalogService) GetProduct(context.Context, uint) (*model.Product, error) {
	return f.product, f.err
}

func (f *fakeCatalogService) DeleteProduct(context.Context, uint, bool, importer.Caller) error {
	return f.err
}

func (f *fakeCatalogService) StockMovements(context.Context, int) ([]repository.StockMovementData, error) {
	return []repository.StockMovementData{}, f.err
}

func newApp(locals map[string]interface{}) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler})
	app.Use(func(c *fiber.Ctx) error {
		for k, v := range locals {
			c.Locals(k, v)
		}
		return c.Next()
	})
	return app
}

var aliceLocals = map[string]interface{}{
	"user_id":       "u-alice",
	"user_name":     "Alice",
	"user_email":    "alice@shop.test",
	"user_is_admin": false,
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	var out map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func TestImportHandler_PreviewJSON(t *testing.T) {
	svc := &fakeImportService{preview: &service.PreviewResult{BatchID: "b-1", Checksum: "abc", Preview: []importer.PreviewRow{}}}
	app := newApp(aliceLocals)
	h := NewImportHandler(svc, 1024)
	app.Post("/import/preview", h.Preview)

	resp, body := doJSON(t, app, http.MethodPost, "/import/preview", fiber.Map{
		"file":       base64.StdEncoding.EncodeToString([]byte("name,price\nTea,10\n")),
		"filename":   "products.csv",
		"mode":       "upsert",
		"stock_mode": "delta",
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "b-1", body["batch_id"])
	assert.Equal(t, "products.csv", svc.gotPreview.Filename)
	assert.Equal(t, "name,price\nTea,10\n", string(svc.gotPreview.Data))
	assert.Equal(t, "delta", svc.gotPreview.StockMode)
	assert.Equal(t, "u-alice", svc.gotCaller.ID)
}

func TestImportHandler_PreviewMultipart(t *testing.T) {
	svc := &fakeImportService{preview: &service.PreviewResult{Preview: []importer.PreviewRow{}}}
	app := newApp(aliceLocals)
	app.Post("/import/preview", NewImportHandler(svc, 1024).Preview)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "stock.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("sku,stock\nTEA-1,4\n"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("auto_confirm", "true"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import/preview", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "stock.csv", svc.gotPreview.Filename)
	assert.True(t, svc.gotPreview.AutoConfirm)
}

func TestImportHandler_PreviewErrors(t *testing.T) {
	svc := &fakeImportService{previewErr: errors.Join(service.ErrInvalidInput, errors.New("bad file"))}
	app := newApp(aliceLocals)
	app.Post("/import/preview", NewImportHandler(svc, 8).Preview)

	resp, _ := doJSON(t, app, http.MethodPost, "/import/preview", fiber.Map{"file": "!!", "filename": "a.csv"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/import/preview", fiber.Map{
		"file":     base64.StdEncoding.EncodeToString([]byte("far more than eight bytes")),
		"filename": "a.csv",
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/import/preview", fiber.Map{
		"file":     base64.StdEncoding.EncodeToString([]byte("x")),
		"filename": "a.pdf",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "bad file")
}

func TestImportHandler_ConfirmStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		outcome importer.Outcome
		status  int
	}{
		{"applied", importer.Applied(2, 1), http.StatusOK},
		{"not found", importer.Rejected(importer.OutcomeNotFound, importer.ErrBatchNotFound), http.StatusNotFound},
		{"checksum", importer.Rejected(importer.OutcomeChecksumMismatch, importer.ErrChecksumMismatch), http.StatusConflict},
		{"forbidden", importer.Rejected(importer.OutcomeForbidden, importer.ErrForbidden), http.StatusForbidden},
		{"busy", importer.Rejected(importer.OutcomeBusy, importer.ErrBatchBusy), http.StatusConflict},
		{"rows", importer.RowsFailed([]importer.RowError{{Row: 3, Message: "gone"}}), http.StatusConflict},
		{"internal", importer.Rejected(importer.OutcomeInternal, errors.New("pq: connection reset")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeImportService{outcome: tt.outcome}
			app := newApp(aliceLocals)
			app.Post("/import/confirm", NewImportHandler(svc, 0).Confirm)

			resp, body := doJSON(t, app, http.MethodPost, "/import/confirm", fiber.Map{
				"batch_id":             "b-1",
				"checksum":             "abc",
				"allow_identical_rows": []int{3},
			})

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, string(tt.outcome.Kind), body["status"])
			assert.Equal(t, []int{3}, svc.gotConfirm.AllowIdenticalRows)
			detail, _ := body["detail"].(string)
			assert.NotContains(t, detail, "pq:")
		})
	}
}

func TestImportHandler_ConfirmRequiresFields(t *testing.T) {
	app := newApp(aliceLocals)
	app.Post("/import/confirm", NewImportHandler(&fakeImportService{}, 0).Confirm)

	resp, body := doJSON(t, app, http.MethodPost, "/import/confirm", fiber.Map{"batch_id": "b-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "batch_id and checksum are required", body["error"])
}

func TestImportHandler_GetBatch(t *testing.T) {
	app := newApp(aliceLocals)
	svc := &fakeImportService{batchErr: importer.ErrBatchNotFound}
	app.Get("/batches/:id", NewImportHandler(svc, 0).GetBatch)

	resp, _ := doJSON(t, app, http.MethodGet, "/batches/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	svc.batchErr = nil
	svc.batch = &model.ImportBatch{BatchID: "b-1", Status: model.BatchApplied}
	resp, body := doJSON(t, app, http.MethodGet, "/batches/b-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "applied", body["status"])
}

func TestProductHandler_CreateErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &service.ValidationError{Violations: []string{"name is required"}}, http.StatusBadRequest},
		{"conflict", &service.ConflictError{Conflict: &importer.Conflict{Field: "sku", Severity: importer.SeverityBlock, Message: "taken"}}, http.StatusConflict},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(aliceLocals)
			app.Post("/products", NewProductHandler(&fakeCatalogService{err: tt.err}).CreateProduct)

			resp, body := doJSON(t, app, http.MethodPost, "/products", fiber.Map{"name": "Tea"})
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestProductHandler_CreatePassesRawRow(t *testing.T) {
	svc := &fakeCatalogService{product: &model.Product{Name: "Tea"}}
	app := newApp(aliceLocals)
	app.Post("/products", NewProductHandler(svc).CreateProduct)

	resp, _ := doJSON(t, app, http.MethodPost, "/products?allow_identical=true", fiber.Map{"name": "Tea", "price": 12.5, "image_url": "https://x.io/a.png"})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, svc.allow)
	assert.Equal(t, "12.5", svc.gotRaw.Price.String())
	assert.True(t, svc.gotRaw.Supplied("image"))
	assert.False(t, svc.gotRaw.Supplied("stock"))
}

func TestProductHandler_GetAndDelete(t *testing.T) {
	app := newApp(aliceLocals)
	svc := &fakeCatalogService{err: service.ErrProductNotFound}
	h := NewProductHandler(svc)
	app.Get("/products/:id", h.GetProduct)
	app.Delete("/products/:id", h.DeleteProduct)

	resp, _ := doJSON(t, app, http.MethodGet, "/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/products/7", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	svc.err = service.ErrProductReferenced
	resp, _ = doJSON(t, app, http.MethodDelete, "/products/7?hard=true", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCallerFrom(t *testing.T) {
	app := fiber.New()
	var got importer.Caller
	app.Get("/", func(c *fiber.Ctx) error {
		got = callerFrom(c)
		return nil
	})
	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, importer.Caller{ID: "system", Name: "Unknown"}, got)
}
