package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/service"
)

// InvoiceHandler 发票与收款处理器
type InvoiceHandler struct {
	svc *service.InvoiceService
}

func NewInvoiceHandler(svc *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// List 发票列表
// GET /api/v1/sales/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	orgID := GetOrgID(c)
	params := docListParams(c, orgID)

	items, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取发票列表失败: "+err.Error())
		return
	}
	Success(c, NewListResponse(items, total, params.Page, params.PageSize))
}

// Create 创建发票（可从销售订单或发货单转换）
// POST /api/v1/sales/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	inv, err := h.svc.Create(c.Request.Context(), GetOrgID(c), GetUserID(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	Created(c, inv)
}

// Get 发票详情（含收款台账汇总）
// GET /api/v1/sales/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	detail, err := h.svc.Get(c.Request.Context(), GetOrgID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, detail)
}

// Update 更新发票
// PUT /api/v1/sales/invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	detail, err := h.svc.Update(c.Request.Context(), GetOrgID(c), c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, detail)
}

// UpdateStatus 状态流转
// PATCH /api/v1/sales/invoices/:id/status
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	inv, err := h.svc.UpdateStatus(c.Request.Context(), GetOrgID(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, inv)
}

// Delete 删除发票
// DELETE /api/v1/sales/invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetOrgID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{"message": "发票已删除"})
}

// AddPayment 登记收款
// POST /api/v1/sales/invoices/:id/payments
func (h *InvoiceHandler) AddPayment(c *gin.Context) {
	var req service.AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	detail, err := h.svc.AddPayment(c.Request.Context(), GetOrgID(c), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	Created(c, detail)
}

// DeletePayment 删除收款记录
// DELETE /api/v1/sales/invoices/:id/payments/:payment_id
func (h *InvoiceHandler) DeletePayment(c *gin.Context) {
	detail, err := h.svc.DeletePayment(c.Request.Context(), GetOrgID(c), c.Param("id"), c.Param("payment_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, detail)
}
