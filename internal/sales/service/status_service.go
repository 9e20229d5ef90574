package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/repository"
)

const statusCacheTTL = 10 * time.Minute

// StatusService 状态配置服务。
// 每组织每单据类型一套可配置状态流；key→定义 的查找表缓存在 Redis，
// 替换成功后同步失效，确认写入之后不会再提供旧表。
type StatusService struct {
	repo *repository.StatusRepository
	db   *gorm.DB
	rdb  *redis.Client
}

func NewStatusService(repo *repository.StatusRepository, db *gorm.DB, rdb *redis.Client) *StatusService {
	return &StatusService{repo: repo, db: db, rdb: rdb}
}

// StatusEntryInput 状态定义入参
type StatusEntryInput struct {
	Key         string `json:"key" binding:"required"`
	Label       string `json:"label"`
	Color       string `json:"color"`
	IsActive    *bool  `json:"is_active"`
	IsCompleted bool   `json:"is_completed"`
}

// ReplaceStatusesRequest 整表替换请求，条目顺序即展示顺序
type ReplaceStatusesRequest struct {
	Statuses []StatusEntryInput `json:"statuses" binding:"required,min=1"`
}

// List 查询状态定义；空配置时先播种默认状态流
func (s *StatusService) List(ctx context.Context, orgID, docType string) ([]entity.StatusDefinition, error) {
	if !entity.IsValidDocType(docType) {
		return nil, validationErr("未知单据类型: %s", docType)
	}
	defs, err := s.repo.ListByType(ctx, orgID, docType)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		defs = DefaultStatuses(orgID, docType)
		if err := s.repo.ReplaceAll(ctx, orgID, docType, defs); err != nil {
			return nil, fmt.Errorf("播种默认状态失败: %w", err)
		}
	}
	return defs, nil
}

// Replace 整表替换状态定义。
// 任何一条校验失败则整体拒绝，旧配置保持不变：
//   - 每条必须有非空 key 与 label，key 不得重复；
//   - 保留键 cancelled 必须存在且不得标记为完成状态；
//   - 报价单/销售订单必须恰好一个完成状态，零个或多个都拒绝；
//   - 被现存单据引用的状态不允许移除。
func (s *StatusService) Replace(ctx context.Context, orgID, docType string, req *ReplaceStatusesRequest) ([]entity.StatusDefinition, error) {
	if !entity.IsValidDocType(docType) {
		return nil, validationErr("未知单据类型: %s", docType)
	}

	seen := make(map[string]bool, len(req.Statuses))
	hasCancelled := false
	for i, in := range req.Statuses {
		if in.Key == "" {
			return nil, validationErr("第%d条状态缺少 key", i+1)
		}
		if in.Label == "" {
			return nil, validationErr("状态 %s 缺少显示名称", in.Key)
		}
		if seen[in.Key] {
			return nil, validationErr("状态 key 重复: %s", in.Key)
		}
		seen[in.Key] = true
		if in.Key == entity.StatusKeyCancelled {
			hasCancelled = true
			if in.IsCompleted {
				return nil, validationErr("cancelled 不能作为完成状态")
			}
		}
	}
	if !hasCancelled {
		return nil, validationErr("状态配置必须包含保留状态 cancelled")
	}

	completedCount := 0
	for _, in := range req.Statuses {
		if in.IsCompleted {
			completedCount++
		}
	}
	if entity.HasCompletionFlag(docType) {
		if completedCount != 1 {
			return nil, validationErr("必须恰好指定一个完成状态，收到 %d 个", completedCount)
		}
	} else if completedCount > 0 {
		return nil, validationErr("%s 的状态不支持完成标记", docType)
	}

	defs := make([]entity.StatusDefinition, 0, len(req.Statuses))
	now := time.Now()
	for i, in := range req.Statuses {
		active := true
		if in.IsActive != nil {
			active = *in.IsActive
		}
		defs = append(defs, entity.StatusDefinition{
			ID:          uuid.New().String(),
			OrgID:       orgID,
			DocType:     docType,
			Key:         in.Key,
			Label:       in.Label,
			Color:       in.Color,
			SortOrder:   i,
			IsActive:    active,
			IsCompleted: in.IsCompleted && entity.HasCompletionFlag(docType),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	// 删除保护与替换在同一事务内：被现存单据引用的状态不允许移除，
	// 引用计数在替换事务内复核
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.ListByTypeTx(tx, orgID, docType)
		if err != nil {
			return err
		}
		for _, old := range existing {
			if seen[old.Key] {
				continue
			}
			count, err := s.repo.CountDocumentsWithStatusTx(tx, orgID, docType, old.Key)
			if err != nil {
				return err
			}
			if count > 0 {
				return preconditionErr("状态 %s 正被 %d 张单据引用，不能删除", old.Key, count)
			}
		}
		return s.repo.ReplaceAllTx(tx, orgID, docType, defs)
	})
	if err != nil {
		if errors.Is(err, ErrPrecondition) {
			return nil, err
		}
		return nil, fmt.Errorf("替换状态配置失败: %w", err)
	}
	s.refreshCache(ctx, orgID, docType, defs)
	return defs, nil
}

// Lookup 返回 key→定义 的查找表（Redis 缓存）
func (s *StatusService) Lookup(ctx context.Context, orgID, docType string) (map[string]entity.StatusDefinition, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, statusCacheKey(orgID, docType)).Bytes(); err == nil {
			var cached map[string]entity.StatusDefinition
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	defs, err := s.List(ctx, orgID, docType)
	if err != nil {
		return nil, err
	}
	lookup := make(map[string]entity.StatusDefinition, len(defs))
	for _, d := range defs {
		lookup[d.Key] = d
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(lookup); err == nil {
			s.rdb.Set(ctx, statusCacheKey(orgID, docType), raw, statusCacheTTL)
		}
	}
	return lookup, nil
}

// ValidateStatus 校验单据状态必须是当前配置中的有效键。
// 未知状态一律拒绝，绝不静默放行。
func (s *StatusService) ValidateStatus(ctx context.Context, orgID, docType, key string) error {
	lookup, err := s.Lookup(ctx, orgID, docType)
	if err != nil {
		return err
	}
	if _, ok := lookup[key]; !ok {
		return validationErr("状态 %s 不在 %s 的当前状态配置中", key, docType)
	}
	return nil
}

// InitialStatus 返回新单据的初始状态：排序最前的启用且非完成、非取消状态
func (s *StatusService) InitialStatus(ctx context.Context, orgID, docType string) (string, error) {
	defs, err := s.List(ctx, orgID, docType)
	if err != nil {
		return "", err
	}
	for _, d := range defs {
		if d.IsActive && !d.IsCompleted && d.Key != entity.StatusKeyCancelled {
			return d.Key, nil
		}
	}
	return "", preconditionErr("%s 没有可用的初始状态", docType)
}

// refreshCache 在替换确认后用新配置覆写缓存，单条 SET 不留删除到回填的空窗。
// 覆写失败退回删除；删除也失败必须留下日志，旧表不允许静默存活到 TTL。
func (s *StatusService) refreshCache(ctx context.Context, orgID, docType string, defs []entity.StatusDefinition) {
	if s.rdb == nil {
		return
	}
	key := statusCacheKey(orgID, docType)

	lookup := make(map[string]entity.StatusDefinition, len(defs))
	for _, d := range defs {
		lookup[d.Key] = d
	}
	if raw, err := json.Marshal(lookup); err == nil {
		if err := s.rdb.Set(ctx, key, raw, statusCacheTTL).Err(); err == nil {
			return
		}
	}

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		zap.L().Warn("status cache invalidation failed",
			zap.String("org_id", orgID),
			zap.String("doc_type", docType),
			zap.Error(err))
	}
}

func statusCacheKey(orgID, docType string) string {
	return fmt.Sprintf("sales:statuses:%s:%s", orgID, docType)
}

// IsRevenueRecognized 判断单据金额是否计入已实现营收。
// 完成标记语义的唯一判定点：带完成标记的状态流看标记，其余类型不适用。
func IsRevenueRecognized(statusKey string, registry map[string]entity.StatusDefinition) bool {
	def, ok := registry[statusKey]
	return ok && def.IsCompleted
}

// DefaultStatuses 各单据类型的默认状态流
func DefaultStatuses(orgID, docType string) []entity.StatusDefinition {
	type seed struct {
		key, label, color string
		completed         bool
	}
	var seeds []seed
	switch docType {
	case entity.DocTypeQuotation:
		seeds = []seed{
			{"draft", "草稿", "#9CA3AF", false},
			{"sent", "已发送", "#3B82F6", false},
			{"accepted", "已接受", "#10B981", true},
			{entity.StatusKeyCancelled, "已取消", "#EF4444", false},
		}
	case entity.DocTypeSalesOrder:
		seeds = []seed{
			{"pending", "待处理", "#9CA3AF", false},
			{"processing", "处理中", "#3B82F6", false},
			{"completed", "已完成", "#10B981", true},
			{entity.StatusKeyCancelled, "已取消", "#EF4444", false},
		}
	case entity.DocTypeDeliveryOrder:
		seeds = []seed{
			{"preparing", "备货中", "#9CA3AF", false},
			{"shipped", "已发货", "#3B82F6", false},
			{"delivered", "已签收", "#10B981", false},
			{entity.StatusKeyCancelled, "已取消", "#EF4444", false},
		}
	case entity.DocTypeInvoice:
		seeds = []seed{
			{"unpaid", "未收款", "#9CA3AF", false},
			{"partial", "部分收款", "#F59E0B", false},
			{"paid", "已收款", "#10B981", false},
			{entity.StatusKeyCancelled, "已取消", "#EF4444", false},
		}
	}

	now := time.Now()
	defs := make([]entity.StatusDefinition, 0, len(seeds))
	for i, sd := range seeds {
		defs = append(defs, entity.StatusDefinition{
			ID:          uuid.New().String(),
			OrgID:       orgID,
			DocType:     docType,
			Key:         sd.key,
			Label:       sd.label,
			Color:       sd.color,
			SortOrder:   i,
			IsActive:    true,
			IsCompleted: sd.completed,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return defs
}
