package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/repository"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/service"
)

// Handlers 处理器集合
type Handlers struct {
	Status     *StatusHandler
	Numbering  *NumberingHandler
	Quotation  *QuotationHandler
	SalesOrder *SalesOrderHandler
	Delivery   *DeliveryHandler
	Invoice    *InvoiceHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Status:     NewStatusHandler(svc.Status),
		Numbering:  NewNumberingHandler(svc.Numbering),
		Quotation:  NewQuotationHandler(svc.Quotation),
		SalesOrder: NewSalesOrderHandler(svc.SalesOrder, svc.Fulfillment),
		Delivery:   NewDeliveryHandler(svc.Delivery),
		Invoice:    NewInvoiceHandler(svc.Invoice),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewListResponse 组装列表响应
func NewListResponse(items interface{}, total int64, page, pageSize int) *ListResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// PreconditionFailed 前置条件不满足响应
func PreconditionFailed(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// writeError 把服务层哨兵错误映射为对应的响应码，
// 未识别的错误一律归入 50000。
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		Forbidden(c, "无权访问该单据")
	case errors.Is(err, service.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrPrecondition):
		PreconditionFailed(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetOrgID 从上下文获取组织ID
func GetOrgID(c *gin.Context) string {
	orgID, _ := c.Get("org_id")
	if id, ok := orgID.(string); ok {
		return id
	}
	return ""
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

// docListParams 组装单据列表的通用筛选参数
func docListParams(c *gin.Context, orgID string) repository.DocListParams {
	page, pageSize := GetPagination(c)
	return repository.DocListParams{
		OrgID:         orgID,
		CustomerID:    c.Query("customer_id"),
		SalesPersonID: c.Query("sales_person_id"),
		Status:        c.Query("status"),
		DateFrom:      parseDateQuery(c.Query("date_from")),
		DateTo:        parseDateQuery(c.Query("date_to")),
		Page:          page,
		PageSize:      pageSize,
	}
}

// parseDateQuery 解析日期筛选参数，格式不对时忽略该筛选
func parseDateQuery(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
