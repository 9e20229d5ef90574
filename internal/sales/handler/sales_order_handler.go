package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/service"
)

// SalesOrderHandler 销售订单处理器
type SalesOrderHandler struct {
	svc         *service.SalesOrderService
	fulfillment *service.FulfillmentService
}

func NewSalesOrderHandler(svc *service.SalesOrderService, fulfillment *service.FulfillmentService) *SalesOrderHandler {
	return &SalesOrderHandler{svc: svc, fulfillment: fulfillment}
}

// List 销售订单列表
// GET /api/v1/sales/orders
func (h *SalesOrderHandler) List(c *gin.Context) {
	orgID := GetOrgID(c)
	params := docListParams(c, orgID)

	items, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取订单列表失败: "+err.Error())
		return
	}
	Success(c, NewListResponse(items, total, params.Page, params.PageSize))
}

// Create 创建销售订单（携带 quotation_id 时为报价单转换）
// POST /api/v1/sales/orders
func (h *SalesOrderHandler) Create(c *gin.Context) {
	var req service.CreateSalesOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	so, err := h.svc.Create(c.Request.Context(), GetOrgID(c), GetUserID(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	Created(c, so)
}

// Get 订单详情（含履约台账）
// GET /api/v1/sales/orders/:id
func (h *SalesOrderHandler) Get(c *gin.Context) {
	detail, err := h.svc.Get(c.Request.Context(), GetOrgID(c), c.Param("id"), h.fulfillment)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, detail)
}

// Update 更新销售订单
// PUT /api/v1/sales/orders/:id
func (h *SalesOrderHandler) Update(c *gin.Context) {
	var req service.CreateSalesOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	so, err := h.svc.Update(c.Request.Context(), GetOrgID(c), c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, so)
}

// UpdateStatus 状态流转
// PATCH /api/v1/sales/orders/:id/status
func (h *SalesOrderHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	so, err := h.svc.UpdateStatus(c.Request.Context(), GetOrgID(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, so)
}

// Delete 删除销售订单
// DELETE /api/v1/sales/orders/:id
func (h *SalesOrderHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetOrgID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{"message": "销售订单已删除"})
}

// Fulfillment 订单履约台账
// GET /api/v1/sales/orders/:id/fulfillment
func (h *SalesOrderHandler) Fulfillment(c *gin.Context) {
	rows, err := h.fulfillment.Summarize(c.Request.Context(), GetOrgID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{"items": rows})
}
