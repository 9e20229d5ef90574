package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/service"
)

// NumberingHandler 单据编号设置处理器
type NumberingHandler struct {
	svc *service.NumberingService
}

func NewNumberingHandler(svc *service.NumberingService) *NumberingHandler {
	return &NumberingHandler{svc: svc}
}

// Get 查询某单据类型的编号设置（未配置时返回默认值）
// GET /api/v1/sales/numbering/:doc_type
func (h *NumberingHandler) Get(c *gin.Context) {
	orgID := GetOrgID(c)
	docType := c.Param("doc_type")

	setting, err := h.svc.GetSetting(c.Request.Context(), orgID, docType)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, setting)
}

// Save 保存编号设置
// PUT /api/v1/sales/numbering/:doc_type
func (h *NumberingHandler) Save(c *gin.Context) {
	orgID := GetOrgID(c)
	docType := c.Param("doc_type")

	var req service.SaveSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数有误: "+err.Error())
		return
	}

	setting, err := h.svc.SaveSetting(c.Request.Context(), orgID, docType, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	Success(c, setting)
}

// Preview 预览编号模板的渲染结果
// GET /api/v1/sales/numbering/preview?template=QT-YYYYMM-####&counter=7
func (h *NumberingHandler) Preview(c *gin.Context) {
	template := c.Query("template")
	if template == "" {
		BadRequest(c, "缺少模板参数")
		return
	}
	counter := int64(1)
	if v := c.Query("counter"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			BadRequest(c, "计数器参数有误")
			return
		}
		counter = n
	}
	Success(c, gin.H{"code": h.svc.Preview(template, counter)})
}
