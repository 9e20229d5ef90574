package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/repository"
)

// DeliveryService 发货单服务。
// 从销售订单转换创建时，明细默认取履约台账的剩余量；提交时在插入事务内
// 对订单行加锁后按最新余量复核——另一个标签页先把余量发完时，后来的提交
// 会拿到带上限说明的拒绝，而不是把台账写穿。
type DeliveryService struct {
	repo        *repository.DeliveryOrderRepository
	soRepo      *repository.SalesOrderRepository
	fulfillment *FulfillmentService
	status      *StatusService
	numbering   *NumberingService
	db          *gorm.DB
	minioClient *minio.Client
	bucket      string
}

func NewDeliveryService(
	repo *repository.DeliveryOrderRepository,
	soRepo *repository.SalesOrderRepository,
	fulfillment *FulfillmentService,
	status *StatusService,
	numbering *NumberingService,
	db *gorm.DB,
	minioClient *minio.Client,
	bucket string,
) *DeliveryService {
	return &DeliveryService{
		repo:        repo,
		soRepo:      soRepo,
		fulfillment: fulfillment,
		status:      status,
		numbering:   numbering,
		db:          db,
		minioClient: minioClient,
		bucket:      bucket,
	}
}

// CreateDeliveryOrderRequest 创建发货单请求。
// SalesOrderID 非空且未给明细时，按剩余量生成整单发货。
type CreateDeliveryOrderRequest struct {
	SalesOrderID *string             `json:"sales_order_id"`
	CustomerID   string              `json:"customer_id"`
	CustomerName string              `json:"customer_name"`
	AssigneeID   string              `json:"assignee_id"`
	AssigneeName string              `json:"assignee_name"`
	DocDate      string              `json:"doc_date"`
	Notes        string              `json:"notes"`
	Items        []DeliveryItemInput `json:"items" binding:"omitempty,dive"`
}

// Create 创建发货单
func (s *DeliveryService) Create(ctx context.Context, orgID, userID string, req *CreateDeliveryOrderRequest) (*entity.DeliveryOrder, error) {
	docDate, err := parseDocDate(req.DocDate)
	if err != nil {
		return nil, err
	}
	if docDate == nil {
		now := time.Now()
		docDate = &now
	}

	initial, err := s.status.InitialStatus(ctx, orgID, entity.DocTypeDeliveryOrder)
	if err != nil {
		return nil, err
	}

	do := &entity.DeliveryOrder{
		ID:           uuid.New().String(),
		OrgID:        orgID,
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		AssigneeID:   req.AssigneeID,
		AssigneeName: req.AssigneeName,
		Status:       initial,
		DocDate:      docDate,
		Notes:        req.Notes,
		CreatedBy:    userID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.SalesOrderID != nil && *req.SalesOrderID != "" {
			// 锁住订单行，让并发的发货创建串行通过余量复核
			so, err := s.soRepo.FindByIDForUpdate(tx, *req.SalesOrderID)
			if err != nil {
				return fmt.Errorf("来源销售订单: %w", err)
			}
			if so.OrgID != orgID {
				return ErrForbidden
			}
			if so.Status == entity.StatusKeyCancelled {
				return preconditionErr("销售订单 %s 已取消，不能发货", so.Code)
			}

			rows, err := s.fulfillment.SummarizeTx(tx, so)
			if err != nil {
				return err
			}
			items, err := buildDeliveryItems(do.ID, req.Items, rows)
			if err != nil {
				return err
			}
			do.SalesOrderID = &so.ID
			do.CustomerID = so.CustomerID
			do.CustomerName = so.CustomerName
			if do.AssigneeID == "" {
				// 未指派经办人时沿用订单的销售员
				do.AssigneeID = so.SalesPersonID
				do.AssigneeName = so.SalesPersonName
			}
			do.Items = items
		} else {
			if do.CustomerID == "" {
				return validationErr("缺少客户")
			}
			if len(req.Items) == 0 {
				return validationErr("发货单至少需要一条明细")
			}
			do.Items = freeDeliveryItems(do.ID, req.Items)
		}

		code, err := s.numbering.NextCode(ctx, tx, orgID, entity.DocTypeDeliveryOrder, *docDate)
		if err != nil {
			return err
		}
		do.Code = code
		return s.repo.Create(tx, do)
	})
	if err != nil {
		return nil, err
	}
	return do, nil
}

// buildDeliveryItems 基于实时余量构造发货明细。
// 未给明细时默认整单发剩余量；给了明细时逐条校验不超过余量。
func buildDeliveryItems(deliveryOrderID string, inputs []DeliveryItemInput, rows []FulfillmentRow) ([]entity.DeliveryOrderItem, error) {
	index := make(map[string]FulfillmentRow, len(rows))
	for _, row := range rows {
		index[row.ProductID] = row
	}

	var items []entity.DeliveryOrderItem
	if len(inputs) == 0 {
		for _, row := range rows {
			if row.FullyDelivered {
				continue
			}
			items = append(items, entity.DeliveryOrderItem{
				ID:              uuid.New().String(),
				DeliveryOrderID: deliveryOrderID,
				ProductID:       row.ProductID,
				ProductName:     row.ProductName,
				Unit:            row.Unit,
				Quantity:        row.RemainingQty,
				SortOrder:       len(items),
			})
		}
		if len(items) == 0 {
			return nil, preconditionErr("销售订单已全部发货")
		}
		return items, nil
	}

	for i, in := range inputs {
		if in.Quantity <= 0 {
			return nil, validationErr("第%d条明细数量必须大于0", i+1)
		}
		row, ok := index[in.ProductID]
		if !ok {
			return nil, validationErr("商品 %s 不在该销售订单上", in.ProductID)
		}
		qty := dec(in.Quantity)
		if qty.GreaterThan(row.RemainingQty) {
			return nil, preconditionErr("商品 %s 发货数量 %s 超出剩余量 %s",
				row.ProductName, qty.String(), row.RemainingQty.String())
		}
		name := in.ProductName
		if name == "" {
			name = row.ProductName
		}
		unit := in.Unit
		if unit == "" {
			unit = row.Unit
		}
		items = append(items, entity.DeliveryOrderItem{
			ID:              uuid.New().String(),
			DeliveryOrderID: deliveryOrderID,
			ProductID:       in.ProductID,
			ProductName:     name,
			Unit:            unit,
			Quantity:        qty,
			SortOrder:       i,
		})
	}
	return items, nil
}

func freeDeliveryItems(deliveryOrderID string, inputs []DeliveryItemInput) []entity.DeliveryOrderItem {
	items := make([]entity.DeliveryOrderItem, 0, len(inputs))
	for i, in := range inputs {
		items = append(items, entity.DeliveryOrderItem{
			ID:              uuid.New().String(),
			DeliveryOrderID: deliveryOrderID,
			ProductID:       in.ProductID,
			ProductName:     in.ProductName,
			Unit:            in.Unit,
			Quantity:        dec(in.Quantity),
			SortOrder:       i,
		})
	}
	return items
}

// Get 发货单详情
func (s *DeliveryService) Get(ctx context.Context, orgID, id string) (*entity.DeliveryOrder, error) {
	return s.find(ctx, orgID, id)
}

// List 发货单列表
func (s *DeliveryService) List(ctx context.Context, params repository.DocListParams) ([]entity.DeliveryOrder, int64, error) {
	return s.repo.List(ctx, params)
}

// UpdateStatus 显式状态流转。发货单不支持改明细：
// 数量写错走取消后重开，保证履约台账的历史可审计。
func (s *DeliveryService) UpdateStatus(ctx context.Context, orgID, id, status string) (*entity.DeliveryOrder, error) {
	do, err := s.find(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if err := s.status.ValidateStatus(ctx, orgID, entity.DocTypeDeliveryOrder, status); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("更新发货单状态失败: %w", err)
	}
	do.Status = status
	return do, nil
}

// Delete 删除发货单
func (s *DeliveryService) Delete(ctx context.Context, orgID, id string) error {
	if _, err := s.find(ctx, orgID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// UploadAttachment 上传签收凭证等附件，文件本体写入 MinIO
func (s *DeliveryService) UploadAttachment(ctx context.Context, orgID, userID, id, filename, contentType string, size int64, reader io.Reader) (*entity.Attachment, error) {
	if s.minioClient == nil {
		return nil, preconditionErr("附件存储未配置")
	}
	do, err := s.find(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("delivery/%s/%s%s", do.ID, uuid.New().String(), filepath.Ext(filename))
	_, err = s.minioClient.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("上传附件失败: %w", err)
	}

	a := &entity.Attachment{
		ID:              uuid.New().String(),
		OrgID:           orgID,
		DeliveryOrderID: do.ID,
		ObjectKey:       objectKey,
		Filename:        filename,
		Size:            size,
		ContentType:     contentType,
		CreatedBy:       userID,
	}
	if err := s.repo.CreateAttachment(ctx, a); err != nil {
		return nil, fmt.Errorf("登记附件失败: %w", err)
	}
	return a, nil
}

// ListAttachments 查询附件列表
func (s *DeliveryService) ListAttachments(ctx context.Context, orgID, id string) ([]entity.Attachment, error) {
	if _, err := s.find(ctx, orgID, id); err != nil {
		return nil, err
	}
	return s.repo.ListAttachments(ctx, id)
}

func (s *DeliveryService) find(ctx context.Context, orgID, id string) (*entity.DeliveryOrder, error) {
	do, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if do.OrgID != orgID {
		return nil, ErrForbidden
	}
	return do, nil
}
