package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/service"
)

// QuotationHandler 报价单处理器
type QuotationHandler struct {
	svc *service.QuotationService
}

func NewQuotationHandler(svc *service.QuotationService) *QuotationHandler {
	return &QuotationHandler{svc: svc}
}

// List 报价单列表
// GET /api/v1/sales/quotations
func (h *QuotationHandler) List(c *gin.Context) {
	orgID := GetOrgID(c)
	params := docListParams(c, orgID)

	items, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取报价单列表失败: "+err.Error())
		return
	}
	Success(c, NewListResponse(items, total, params.Page, params.PageSize))
}

// Create 创建报价单
// POST /api/v1/sales/quotations
func (h *QuotationHandler) Create(c *gin.Context) {
	var req service.CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	q, err := h.svc.Create(c.Request.Context(), GetOrgID(c), GetUserID(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	Created(c, q)
}

// Get 报价单详情
// GET /api/v1/sales/quotations/:id
func (h *QuotationHandler) Get(c *gin.Context) {
	detail, err := h.svc.Get(c.Request.Context(), GetOrgID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, detail)
}

// Update 更新报价单
// PUT /api/v1/sales/quotations/:id
func (h *QuotationHandler) Update(c *gin.Context) {
	var req service.CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	q, err := h.svc.Update(c.Request.Context(), GetOrgID(c), c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, q)
}

// UpdateStatus 状态流转
// PATCH /api/v1/sales/quotations/:id/status
func (h *QuotationHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	q, err := h.svc.UpdateStatus(c.Request.Context(), GetOrgID(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, q)
}

// Delete 删除报价单
// DELETE /api/v1/sales/quotations/:id
func (h *QuotationHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetOrgID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{"message": "报价单已删除"})
}

// ListSalesOrders 报价单转出的销售订单
// GET /api/v1/sales/quotations/:id/sales-orders
func (h *QuotationHandler) ListSalesOrders(c *gin.Context) {
	orders, err := h.svc.ListSalesOrders(c.Request.Context(), GetOrgID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{"items": orders})
}
