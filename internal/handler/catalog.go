package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tillsync/internal/apierror"
	"tillsync/internal/dto"
	"tillsync/internal/middleware"
	"tillsync/internal/model"
	"tillsync/internal/syncer"
)

type CatalogHandler struct {
	co syncer.Service
}

func NewCatalogHandler(co syncer.Service) *CatalogHandler {
	return &CatalogHandler{co: co}
}

// ListCategories GET /v1/categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	h.list(c, model.CollectionCategories)
}

// CreateCategory POST /v1/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req dto.CategoryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	h.write(c, model.CollectionCategories, "", model.Record{
		"name":  req.Name,
		"color": req.Color,
	}, http.StatusCreated)
}

// UpdateCategory PATCH /v1/categories/:id
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	var req dto.CategoryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rec, ok := h.fetch(c, model.CollectionCategories, c.Param("id"))
	if !ok {
		return
	}
	rec["name"] = req.Name
	if req.Color != "" {
		rec["color"] = req.Color
	}
	h.write(c, model.CollectionCategories, rec.ID(), rec, http.StatusOK)
}

// DeleteCategory DELETE /v1/categories/:id
//
// Deletion is guarded: a category still referenced by products is refused,
// and the check is evaluated against whichever store is reachable.
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	sess := middleware.GetSession(c)
	rec, ok := h.fetch(c, model.CollectionCategories, c.Param("id"))
	if !ok {
		return
	}
	guard := syncer.CategoryInUse(rec.ID(), rec.String("name"))
	if err := h.co.GuardedDelete(c.Request.Context(), sess, model.CollectionCategories, rec.ID(), guard); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

// BulkDeleteCategories POST /v1/categories/bulk-delete
//
// Items are processed independently; the response itemizes per-id failures
// and never fails the batch as a whole.
func (h *CatalogHandler) BulkDeleteCategories(c *gin.Context) {
	var req dto.BulkDeleteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess := middleware.GetSession(c)

	res, err := h.co.Read(c.Request.Context(), sess, model.CollectionCategories, syncer.Filter{})
	if err != nil {
		respondError(c, err)
		return
	}
	names := make(map[string]string, len(res.Records))
	for _, rec := range res.Records {
		names[rec.ID()] = rec.String("name")
	}
	guards := make(map[string]*syncer.DependencyGuard, len(req.IDs))
	for _, id := range req.IDs {
		if name, ok := names[id]; ok {
			guards[id] = syncer.CategoryInUse(id, name)
		}
	}

	report, err := h.co.BulkGuardedDelete(c.Request.Context(), sess, model.CollectionCategories, req.IDs, guards)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListProducts GET /v1/products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	h.list(c, model.CollectionProducts)
}

// CreateProduct POST /v1/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req dto.ProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rec, ok := h.productRecord(c, req, model.Record{})
	if !ok {
		return
	}
	h.write(c, model.CollectionProducts, "", rec, http.StatusCreated)
}

// UpdateProduct PATCH /v1/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req dto.ProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	existing, ok := h.fetch(c, model.CollectionProducts, c.Param("id"))
	if !ok {
		return
	}
	rec, ok := h.productRecord(c, req, existing)
	if !ok {
		return
	}
	h.write(c, model.CollectionProducts, rec.ID(), rec, http.StatusOK)
}

// DeleteProduct DELETE /v1/products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	sess := middleware.GetSession(c)
	if err := h.co.GuardedDelete(c.Request.Context(), sess, model.CollectionProducts, c.Param("id"), nil); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

// productRecord folds the request onto an existing record, resolving the
// denormalized category name so offline delete guards can keep matching by
// name after a category id is gone.
func (h *CatalogHandler) productRecord(c *gin.Context, req dto.ProductRequest, rec model.Record) (model.Record, bool) {
	rec["name"] = req.Name
	rec["price"] = req.Price
	rec["sku"] = req.SKU
	rec["barcode"] = req.Barcode
	if req.Stock != nil {
		rec["stock"] = *req.Stock
	}
	rec["categoryId"] = req.CategoryID
	rec["categoryName"] = ""
	if req.CategoryID != "" {
		cat, ok := h.fetch(c, model.CollectionCategories, req.CategoryID)
		if !ok {
			return nil, false
		}
		rec["categoryName"] = cat.String("name")
	}
	return rec, true
}

func (h *CatalogHandler) list(c *gin.Context, collection string) {
	sess := middleware.GetSession(c)
	res, err := h.co.Read(c.Request.Context(), sess, collection, syncer.Filter{})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":   res.Records,
		"source": res.Source,
		"stale":  res.Stale,
	})
}

func (h *CatalogHandler) write(c *gin.Context, collection, id string, rec model.Record, status int) {
	sess := middleware.GetSession(c)
	result, err := h.co.Write(c.Request.Context(), sess, collection, id, rec)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{
		"data":   result.Record,
		"source": result.Source,
		"queued": result.Queued,
	})
}

func (h *CatalogHandler) fetch(c *gin.Context, collection, id string) (model.Record, bool) {
	sess := middleware.GetSession(c)
	res, err := h.co.Read(c.Request.Context(), sess, collection, syncer.Filter{
		Equals: map[string]string{"id": id},
	})
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if len(res.Records) == 0 {
		c.JSON(http.StatusNotFound, apierror.New("record not found"))
		return nil, false
	}
	return res.Records[0], true
}
