package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tillsync/internal/dto"
	"tillsync/internal/middleware"
	"tillsync/internal/model"
	"tillsync/internal/shift"
	"tillsync/internal/syncer"
)

type ReceiptsHandler struct {
	shifts shift.Service
	co     syncer.Service
}

func NewReceiptsHandler(shifts shift.Service, co syncer.Service) *ReceiptsHandler {
	return &ReceiptsHandler{shifts: shifts, co: co}
}

// RecordSale POST /v1/sales
func (h *ReceiptsHandler) RecordSale(c *gin.Context) {
	var req dto.RecordSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	items := make([]model.ReceiptItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = model.ReceiptItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}
	sess := middleware.GetSession(c)
	receipt, err := h.shifts.RecordSale(c.Request.Context(), sess, &model.Receipt{
		Total:         req.Total,
		PaymentMethod: req.PaymentMethod,
		Items:         items,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// List GET /v1/receipts
//
// Receipts are operator-scoped: the coordinator only returns records tagged
// with the calling session's operator.
func (h *ReceiptsHandler) List(c *gin.Context) {
	sess := middleware.GetSession(c)
	res, err := h.co.Read(c.Request.Context(), sess, model.CollectionReceipts, syncer.Filter{})
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
