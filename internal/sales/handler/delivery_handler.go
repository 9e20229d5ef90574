package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/service"
)

// DeliveryHandler 发货单处理器
type DeliveryHandler struct {
	svc *service.DeliveryService
}

func NewDeliveryHandler(svc *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{svc: svc}
}

// List 发货单列表
// GET /api/v1/sales/deliveries
func (h *DeliveryHandler) List(c *gin.Context) {
	orgID := GetOrgID(c)
	params := docListParams(c, orgID)

	items, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取发货单列表失败: "+err.Error())
		return
	}
	Success(c, NewListResponse(items, total, params.Page, params.PageSize))
}

// Create 创建发货单（携带 sales_order_id 时为订单转换）
// POST /api/v1/sales/deliveries
func (h *DeliveryHandler) Create(c *gin.Context) {
	var req service.CreateDeliveryOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	do, err := h.svc.Create(c.Request.Context(), GetOrgID(c), GetUserID(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	Created(c, do)
}

// Get 发货单详情
// GET /api/v1/sales/deliveries/:id
func (h *DeliveryHandler) Get(c *gin.Context) {
	do, err := h.svc.Get(c.Request.Context(), GetOrgID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, do)
}

// UpdateStatus 状态流转
// PATCH /api/v1/sales/deliveries/:id/status
func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	do, err := h.svc.UpdateStatus(c.Request.Context(), GetOrgID(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, do)
}

// Delete 删除发货单
// DELETE /api/v1/sales/deliveries/:id
func (h *DeliveryHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetOrgID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{"message": "发货单已删除"})
}

// UploadAttachment 上传附件（签收凭证等）
// POST /api/v1/sales/deliveries/:id/attachments
func (h *DeliveryHandler) UploadAttachment(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "缺少上传文件")
		return
	}
	src, err := file.Open()
	if err != nil {
		InternalError(c, "读取上传文件失败: "+err.Error())
		return
	}
	defer src.Close()

	a, err := h.svc.UploadAttachment(
		c.Request.Context(),
		GetOrgID(c), GetUserID(c), c.Param("id"),
		file.Filename, file.Header.Get("Content-Type"), file.Size, src,
	)
	if err != nil {
		writeError(c, err)
		return
	}
	Created(c, a)
}

// ListAttachments 附件列表
// GET /api/v1/sales/deliveries/:id/attachments
func (h *DeliveryHandler) ListAttachments(c *gin.Context) {
	items, err := h.svc.ListAttachments(c.Request.Context(), GetOrgID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}
