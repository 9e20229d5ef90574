package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/service"
)

// StatusHandler 状态流配置处理器
type StatusHandler struct {
	svc *service.StatusService
}

func NewStatusHandler(svc *service.StatusService) *StatusHandler {
	return &StatusHandler{svc: svc}
}

// List 查询某单据类型的状态流
// GET /api/v1/sales/statuses/:doc_type
func (h *StatusHandler) List(c *gin.Context) {
	orgID := GetOrgID(c)
	docType := c.Param("doc_type")

	defs, err := h.svc.List(c.Request.Context(), orgID, docType)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{"items": defs})
}

// Replace 整组替换某单据类型的状态流
// PUT /api/v1/sales/statuses/:doc_type
func (h *StatusHandler) Replace(c *gin.Context) {
	orgID := GetOrgID(c)
	docType := c.Param("doc_type")

	var req service.ReplaceStatusesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	defs, err := h.svc.Replace(c.Request.Context(), orgID, docType, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, gin.H{"items": defs})
}
