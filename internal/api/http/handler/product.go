package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/samber/lo"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/internal/service/file"
	"github.com/Alijeyrad/dentlab_backend/internal/service/product"
)

type ProductHandler struct {
	svc   product.Service
	files file.Service
}

func NewProductHandler(svc product.Service, files file.Service) *ProductHandler {
	return &ProductHandler{svc: svc, files: files}
}

type productBody struct {
	Name        *string  `json:"name"`
	Price       *float64 `json:"price"`
	Description *string  `json:"description"`
	Stock       *int     `json:"stock"`
	Category    *string  `json:"category"`
	ProductType *string  `json:"productType"`
	ProductTier *string  `json:"productTier"`
}

func (h *ProductHandler) images(c fiber.Ctx) ([]repo.Attachment, error) {
	parts := files(c, "images", "image")
	if len(parts) == 0 {
		return nil, nil
	}
	return h.files.Upload(c.Context(), file.FolderProducts, parts)
}

func attachmentURLs(as []repo.Attachment) []string {
	return lo.Map(as, func(a repo.Attachment, _ int) string { return a.FileURL })
}

// POST /product/create
func (h *ProductHandler) Create(c fiber.Ctx) error {
	var body productBody
	if err := decodeBody(c, &body, "price", "stock"); err != nil {
		return badRequest(c, "Invalid request body")
	}
	images, err := h.images(c)
	if err != nil {
		return mapFileError(c, err)
	}
	req := product.CreateRequest{
		Name:        deref(body.Name),
		Description: deref(body.Description),
		Category:    deref(body.Category),
		ProductType: deref(body.ProductType),
		ProductTier: repo.Tier(deref(body.ProductTier)),
		Images:      images,
	}
	if body.Price != nil {
		req.Price = *body.Price
	}
	if body.Stock != nil {
		req.Stock = *body.Stock
	}

	p, err := h.svc.Create(c.Context(), req)
	if err != nil {
		h.files.Remove(c.Context(), attachmentURLs(images)...)
		return mapProductError(c, err)
	}
	return created(c, "Product created successfully", p)
}

// GET /product/all
func (h *ProductHandler) List(c fiber.Ctx) error {
	res, err := h.svc.List(c.Context(), product.ListRequest{
		Filter: repo.ProductFilter{
			Type:     c.Query("type"),
			Tier:     repo.Tier(c.Query("tier")),
			Category: c.Query("category"),
			Search:   strings.TrimSpace(c.Query("search")),
		},
		Page: queryPage(c),
	})
	if err != nil {
		return internalError(c, err)
	}
	return okPage(c, "Products retrieved successfully", res.Data,
		pagination(res.Page, res.PerPage, res.Total, res.TotalPages))
}

// GET /product/single/:id
func (h *ProductHandler) Get(c fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	p, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return mapProductError(c, err)
	}
	return ok(c, "Product retrieved successfully", p)
}

// PUT /product/update/:id
func (h *ProductHandler) Update(c fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body productBody
	if err := decodeBody(c, &body, "price", "stock"); err != nil {
		return badRequest(c, "Invalid request body")
	}
	images, err := h.images(c)
	if err != nil {
		return mapFileError(c, err)
	}
	req := product.UpdateRequest{
		Name:        body.Name,
		Price:       body.Price,
		Description: body.Description,
		Stock:       body.Stock,
		Category:    body.Category,
		ProductType: body.ProductType,
		Images:      images,
	}
	if body.ProductTier != nil {
		t := repo.Tier(*body.ProductTier)
		req.ProductTier = &t
	}

	p, err := h.svc.Update(c.Context(), id, req)
	if err != nil {
		h.files.Remove(c.Context(), attachmentURLs(images)...)
		return mapProductError(c, err)
	}
	return ok(c, "Product updated successfully", p)
}

// DELETE /product/delete/:id
func (h *ProductHandler) Delete(c fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	p, err := h.svc.Delete(c.Context(), id)
	if err != nil {
		return mapProductError(c, err)
	}
	h.files.Remove(c.Context(), attachmentURLs(p.Images)...)
	return ok(c, "Product deleted successfully", nil)
}

func mapProductError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, product.ErrNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, product.ErrNameRequired),
		errors.Is(err, product.ErrInvalidPrice),
		errors.Is(err, product.ErrInvalidStock),
		errors.Is(err, product.ErrInvalidTier),
		errors.Is(err, product.ErrSearchMissing):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
