package handler

import (
	"errors"
	"strconv"

	"go-retail-catalog/internal/apperr"
	"go-retail-catalog/internal/importer"
	"go-retail-catalog/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	service service.CatalogService
}

func NewProductHandler(s service.CatalogService) *ProductHandler {
	return &ProductHandler{service: s}
}

// callerFrom reads the identity set by middleware.RequireAuth.
func callerFrom(c *fiber.Ctx) importer.Caller {
	caller := importer.Caller{ID: "system", Name: "Unknown"}
	if v, ok := c.Locals("user_id").(string); ok && v != "" {
		caller.ID = v
	}
	if v, ok := c.Locals("user_name").(string); ok && v != "" {
		caller.Name = v
	}
	if v, ok := c.Locals("user_email").(string); ok {
		caller.Email = v
	}
	if v, ok := c.Locals("user_is_admin").(bool); ok {
		caller.Admin = v
	}
	return caller
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.BadRequest("Invalid product ID", err)
	}
	return uint(id), nil
}

// productError maps catalog service errors onto HTTP errors.
func productError(err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return apperr.BadRequest("Validation failed", err).WithDetails(verr.Violations)
	}
	var cerr *service.ConflictError
	if errors.As(err, &cerr) {
		return apperr.Conflict(cerr.Error()).WithDetails(cerr.Conflict)
	}
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		return apperr.NotFound("Product not found")
	case errors.Is(err, service.ErrProductReferenced):
		return apperr.Conflict(err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		return apperr.BadRequest(err.Error(), err)
	}
	return apperr.Internal(err)
}

func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext(), c.QueryBool("include_inactive"))
	if err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return productError(err)
	}
	return c.JSON(p)
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var raw importer.RawRow
	if err := c.BodyParser(&raw); err != nil {
		return apperr.BadRequest("Invalid JSON", err)
	}

	p, err := h.service.CreateProduct(c.UserContext(), raw, c.QueryBool("allow_identical"), callerFrom(c))
	if err != nil {
		return productError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": p})
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var raw importer.RawRow
	if err := c.BodyParser(&raw); err != nil {
		return apperr.BadRequest("Invalid JSON", err)
	}

	p, err := h.service.UpdateProduct(c.UserContext(), id, raw, c.QueryBool("allow_identical"), callerFrom(c))
	if err != nil {
		return productError(err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": p})
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteProduct(c.UserContext(), id, c.QueryBool("hard"), callerFrom(c)); err != nil {
		return productError(err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

func (h *ProductHandler) CreateStockMovement(c *fiber.Ctx) error {
	var req service.StockAdjustment
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid JSON", err)
	}

	p, err := h.service.AdjustStock(c.UserContext(), req, callerFrom(c))
	if err != nil {
		return productError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Stock movement recorded", "data": p})
}

// GetStockMovement returns stock movement data for charts
// Query params: days (default 7)
func (h *ProductHandler) GetStockMovement(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "7"))
	if err != nil || days <= 0 {
		days = 7
	}

	data, err := h.service.StockMovements(c.UserContext(), days)
	if err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}

func (h *ProductHandler) GetCategories(c *fiber.Ctx) error {
	cats, err := h.service.ListCategories(c.UserContext())
	if err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(cats)
}
