package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/repository"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/testutil"
)

func newStatusService(t *testing.T) (*StatusService, *repository.Repositories, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewStatusService(repos.Status, db, nil), repos, db
}

func TestStatusListSeedsDefaults(t *testing.T) {
	svc, _, _ := newStatusService(t)
	ctx := context.Background()

	defs, err := svc.List(ctx, testutil.TestOrgID, entity.DocTypeQuotation)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(defs) != 4 {
		t.Fatalf("Expected 4 default statuses, got %d", len(defs))
	}
	if defs[0].Key != "draft" {
		t.Errorf("Expected first status draft, got %s", defs[0].Key)
	}

	hasCancelled := false
	completed := 0
	for _, d := range defs {
		if d.Key == entity.StatusKeyCancelled {
			hasCancelled = true
		}
		if d.IsCompleted {
			completed++
		}
	}
	if !hasCancelled {
		t.Error("Default statuses must include cancelled")
	}
	if completed != 1 {
		t.Errorf("Expected exactly one completed status, got %d", completed)
	}
}

func TestStatusReplaceRequiresCancelled(t *testing.T) {
	svc, _, _ := newStatusService(t)
	ctx := context.Background()

	_, err := svc.Replace(ctx, testutil.TestOrgID, entity.DocTypeQuotation, &ReplaceStatusesRequest{
		Statuses: []StatusEntryInput{
			{Key: "open", Label: "进行中"},
			{Key: "won", Label: "已成交", IsCompleted: true},
		},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected validation error for missing cancelled, got %v", err)
	}
}

func TestStatusReplaceCompletionCount(t *testing.T) {
	svc, _, _ := newStatusService(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	// 零个完成状态：拒绝
	_, err := svc.Replace(ctx, org, entity.DocTypeSalesOrder, &ReplaceStatusesRequest{
		Statuses: []StatusEntryInput{
			{Key: "open", Label: "进行中"},
			{Key: entity.StatusKeyCancelled, Label: "已取消"},
		},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected rejection for zero completed statuses, got %v", err)
	}

	// 两个完成状态：拒绝
	_, err = svc.Replace(ctx, org, entity.DocTypeSalesOrder, &ReplaceStatusesRequest{
		Statuses: []StatusEntryInput{
			{Key: "done", Label: "已完成", IsCompleted: true},
			{Key: "closed", Label: "已关闭", IsCompleted: true},
			{Key: entity.StatusKeyCancelled, Label: "已取消"},
		},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected rejection for two completed statuses, got %v", err)
	}

	// 发票没有完成标记语义，标记完成状态同样拒绝
	_, err = svc.Replace(ctx, org, entity.DocTypeInvoice, &ReplaceStatusesRequest{
		Statuses: []StatusEntryInput{
			{Key: "paid", Label: "已收款", IsCompleted: true},
			{Key: entity.StatusKeyCancelled, Label: "已取消"},
		},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected rejection for completion flag on invoice, got %v", err)
	}
}

func TestStatusReplaceRejectionKeepsOldConfig(t *testing.T) {
	svc, _, _ := newStatusService(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	before, err := svc.List(ctx, org, entity.DocTypeQuotation)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	// 重复 key：整体拒绝
	_, err = svc.Replace(ctx, org, entity.DocTypeQuotation, &ReplaceStatusesRequest{
		Statuses: []StatusEntryInput{
			{Key: "draft", Label: "草稿"},
			{Key: "draft", Label: "又一个草稿"},
			{Key: "won", Label: "已成交", IsCompleted: true},
			{Key: entity.StatusKeyCancelled, Label: "已取消"},
		},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected validation error for duplicate key, got %v", err)
	}

	after, err := svc.List(ctx, org, entity.DocTypeQuotation)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("Config changed after rejected replace: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if after[i].Key != before[i].Key {
			t.Errorf("Status %d changed: %s -> %s", i, before[i].Key, after[i].Key)
		}
	}
}

func TestStatusReplaceBlocksRemovalOfUsedStatus(t *testing.T) {
	svc, repos, db := newStatusService(t)
	ctx := context.Background()
	org := testutil.TestOrgID

	if _, err := svc.List(ctx, org, entity.DocTypeQuotation); err != nil {
		t.Fatalf("seed defaults: %v", err)
	}

	// 建一张使用 sent 状态的报价单
	q := &entity.Quotation{
		ID: "q-status-001", OrgID: org, Code: "QT-TEST-0001",
		CustomerID: "cust-001", Status: "sent", CreatedBy: "test-user-001",
	}
	if err := repos.Quotation.Create(db, q); err != nil {
		t.Fatalf("seed quotation: %v", err)
	}

	_, err := svc.Replace(ctx, org, entity.DocTypeQuotation, &ReplaceStatusesRequest{
		Statuses: []StatusEntryInput{
			{Key: "draft", Label: "草稿"},
			{Key: "accepted", Label: "已接受", IsCompleted: true},
			{Key: entity.StatusKeyCancelled, Label: "已取消"},
		},
	})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("Expected precondition error for removing in-use status, got %v", err)
	}

	// 保留 sent 的替换可以通过
	defs, err := svc.Replace(ctx, org, entity.DocTypeQuotation, &ReplaceStatusesRequest{
		Statuses: []StatusEntryInput{
			{Key: "draft", Label: "草稿"},
			{Key: "sent", Label: "已寄出"},
			{Key: "accepted", Label: "已接受", IsCompleted: true},
			{Key: entity.StatusKeyCancelled, Label: "已取消"},
		},
	})
	if err != nil {
		t.Fatalf("Replace keeping in-use status failed: %v", err)
	}
	if len(defs) != 4 {
		t.Errorf("Expected 4 statuses, got %d", len(defs))
	}
}

func TestValidateStatusRejectsUnknownKey(t *testing.T) {
	svc, _, _ := newStatusService(t)
	ctx := context.Background()

	if err := svc.ValidateStatus(ctx, testutil.TestOrgID, entity.DocTypeQuotation, "draft"); err != nil {
		t.Fatalf("Known status rejected: %v", err)
	}
	err := svc.ValidateStatus(ctx, testutil.TestOrgID, entity.DocTypeQuotation, "made-up")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected validation error for unknown status, got %v", err)
	}
}

func TestInitialStatusSkipsCompletedAndCancelled(t *testing.T) {
	svc, _, _ := newStatusService(t)
	ctx := context.Background()

	key, err := svc.InitialStatus(ctx, testutil.TestOrgID, entity.DocTypeSalesOrder)
	if err != nil {
		t.Fatalf("InitialStatus failed: %v", err)
	}
	if key != "pending" {
		t.Errorf("Expected initial status pending, got %s", key)
	}
}

func TestIsRevenueRecognized(t *testing.T) {
	registry := map[string]entity.StatusDefinition{
		"accepted": {Key: "accepted", IsCompleted: true},
		"draft":    {Key: "draft"},
	}
	if !IsRevenueRecognized("accepted", registry) {
		t.Error("accepted should be revenue recognized")
	}
	if IsRevenueRecognized("draft", registry) {
		t.Error("draft should not be revenue recognized")
	}
	if IsRevenueRecognized("unknown", registry) {
		t.Error("unknown status should not be revenue recognized")
	}
}

func TestReplaceRefreshesStatusCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rdb := testutil.SetupTestRedis(t)
	repos := repository.NewRepositories(db)
	svc := NewStatusService(repos.Status, db, rdb)
	ctx := context.Background()
	org := fmt.Sprintf("org-cache-%d", time.Now().UnixNano())

	// 首次查表应落入缓存
	lookup, err := svc.Lookup(ctx, org, entity.DocTypeQuotation)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if _, ok := lookup["sent"]; !ok {
		t.Fatal("Default statuses should include sent")
	}
	if n, _ := rdb.Exists(ctx, statusCacheKey(org, entity.DocTypeQuotation)).Result(); n == 0 {
		t.Fatal("Lookup should populate the cache")
	}

	// 替换把 sent 换成 negotiating，替换确认后查表必须立即见到新配置
	_, err = svc.Replace(ctx, org, entity.DocTypeQuotation, &ReplaceStatusesRequest{
		Statuses: []StatusEntryInput{
			{Key: "draft", Label: "草稿"},
			{Key: "negotiating", Label: "洽谈中"},
			{Key: "accepted", Label: "已接受", IsCompleted: true},
			{Key: entity.StatusKeyCancelled, Label: "已取消"},
		},
	})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	lookup, err = svc.Lookup(ctx, org, entity.DocTypeQuotation)
	if err != nil {
		t.Fatalf("Lookup after replace failed: %v", err)
	}
	if _, ok := lookup["negotiating"]; !ok {
		t.Error("Replaced statuses must be visible through Lookup immediately")
	}
	if _, ok := lookup["sent"]; ok {
		t.Error("Removed status must not be served from the cache")
	}
}
