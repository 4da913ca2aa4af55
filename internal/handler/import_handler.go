package handler

import (
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"go-retail-catalog/internal/apperr"
	"go-retail-catalog/internal/importer"
	"go-retail-catalog/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ImportHandler struct {
	service      service.ImportService
	maxFileBytes int64
}

func NewImportHandler(s service.ImportService, maxFileBytes int64) *ImportHandler {
	return &ImportHandler{service: s, maxFileBytes: maxFileBytes}
}

// previewBody is the JSON form of a preview request. File holds the
// spreadsheet bytes, base64 encoded.
type previewBody struct {
	File        string `json:"file"`
	Filename    string `json:"filename"`
	Mode        string `json:"mode"`
	StockMode   string `json:"stock_mode"`
	AutoConfirm bool   `json:"auto_confirm"`
}

// Preview accepts either a multipart upload (field "file") or a JSON body.
func (h *ImportHandler) Preview(c *fiber.Ctx) error {
	req, err := h.previewRequest(c)
	if err != nil {
		return err
	}

	res, err := h.service.Preview(c.UserContext(), req, callerFrom(c))
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return apperr.BadRequest(err.Error(), err)
		}
		return apperr.Internal(err)
	}

	status := fiber.StatusOK
	if res.ApplyResult != nil && !res.ApplyResult.OK() {
		status = outcomeStatus(res.ApplyResult.Kind)
	}
	return c.Status(status).JSON(res)
}

func (h *ImportHandler) previewRequest(c *fiber.Ctx) (service.PreviewRequest, error) {
	var req service.PreviewRequest

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return req, apperr.BadRequest("Missing file upload", err)
		}
		if h.maxFileBytes > 0 && fh.Size > h.maxFileBytes {
			return req, apperr.New(fiber.StatusRequestEntityTooLarge, "File too large", nil)
		}
		f, err := fh.Open()
		if err != nil {
			return req, apperr.BadRequest("Unreadable file upload", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return req, apperr.BadRequest("Unreadable file upload", err)
		}

		req.Filename = fh.Filename
		req.Data = data
		req.Mode = c.FormValue("mode")
		req.StockMode = c.FormValue("stock_mode")
		req.AutoConfirm = parseFlag(c.FormValue("auto_confirm"))
		return req, nil
	}

	var body previewBody
	if err := c.BodyParser(&body); err != nil {
		return req, apperr.BadRequest("Invalid JSON", err)
	}
	if body.File == "" || body.Filename == "" {
		return req, apperr.BadRequest("file and filename are required", nil)
	}
	data, err := base64.StdEncoding.DecodeString(body.File)
	if err != nil {
		return req, apperr.BadRequest("file must be base64 encoded", err)
	}
	if h.maxFileBytes > 0 && int64(len(data)) > h.maxFileBytes {
		return req, apperr.New(fiber.StatusRequestEntityTooLarge, "File too large", nil)
	}

	req.Filename = body.Filename
	req.Data = data
	req.Mode = body.Mode
	req.StockMode = body.StockMode
	req.AutoConfirm = body.AutoConfirm
	return req, nil
}

func (h *ImportHandler) Confirm(c *fiber.Ctx) error {
	var req service.ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid JSON", err)
	}
	if req.BatchID == "" || req.Checksum == "" {
		return apperr.BadRequest("batch_id and checksum are required", nil)
	}

	out := h.service.Confirm(c.UserContext(), req, callerFrom(c))
	if out.Kind == importer.OutcomeInternal {
		out.Detail = "Internal server error"
	}
	return c.Status(outcomeStatus(out.Kind)).JSON(out)
}

// GetBatch returns the audit record of a staged or applied batch.
func (h *ImportHandler) GetBatch(c *fiber.Ctx) error {
	batch, err := h.service.Batch(c.UserContext(), c.Params("id"))
	if errors.Is(err, importer.ErrBatchNotFound) {
		return apperr.NotFound("Import batch not found")
	}
	if err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(batch)
}

func outcomeStatus(kind importer.OutcomeKind) int {
	switch kind {
	case importer.OutcomeApplied:
		return fiber.StatusOK
	case importer.OutcomeNotFound:
		return fiber.StatusNotFound
	case importer.OutcomeChecksumMismatch, importer.OutcomeBusy, importer.OutcomeRowFailed:
		return fiber.StatusConflict
	case importer.OutcomeForbidden:
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
