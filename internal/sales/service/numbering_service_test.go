package service

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/entity"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/repository"
	"github.com/insidedeveloper888/insidecloud-sales/internal/sales/testutil"
)

func TestFormatCode(t *testing.T) {
	at := time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		template string
		counter  int64
		want     string
	}{
		{"标准模板", "QT-YYYYMM-####", 7, "QT-202503-0007"},
		{"年度令牌", "INV/YYYY/###", 42, "INV/2025/042"},
		{"计数超出宽度", "SO-##", 123, "SO-123"},
		{"无计数段", "FIXED-YYYYMM", 9, "FIXED-202503"},
		{"无日期令牌", "DO-#####", 1, "DO-00001"},
		{"未识别文本原样保留", "ABC-XYZ-##", 3, "ABC-XYZ-03"},
		{"只替换第一段井号", "A-##-B-##", 5, "A-05-B-##"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatCode(tt.template, tt.counter, at)
			if got != tt.want {
				t.Errorf("FormatCode(%q, %d) = %q, want %q", tt.template, tt.counter, got, tt.want)
			}
		})
	}
}

func TestNextCodeSequencesAndPeriodReset(t *testing.T) {
	ctx := context.Background()
	org := testutil.TestOrgID
	march := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
	april := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)

	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	numbering := NewNumberingService(repos.Numbering)

	mint := func(at time.Time) string {
		var code string
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			code, err = numbering.NextCode(ctx, tx, org, entity.DocTypeQuotation, at)
			return err
		})
		if err != nil {
			t.Fatalf("NextCode failed: %v", err)
		}
		return code
	}

	if got := mint(march); got != "QT-202503-0001" {
		t.Errorf("first code = %q", got)
	}
	if got := mint(march); got != "QT-202503-0002" {
		t.Errorf("second code = %q", got)
	}
	// 月度归零：跨入四月计数重新从 1 开始
	if got := mint(april); got != "QT-202504-0001" {
		t.Errorf("april code = %q", got)
	}

	// 改模板不清计数：同窗口计数接着走
	if _, err := numbering.SaveSetting(ctx, org, entity.DocTypeQuotation, &SaveSettingRequest{
		FormatTemplate: "Q/YYYYMM/###",
		ResetPeriod:    entity.ResetMonthly,
	}); err != nil {
		t.Fatalf("SaveSetting failed: %v", err)
	}
	if got := mint(march); got != "Q/202503/003" {
		t.Errorf("code after template change = %q", got)
	}
}

func TestPeriodKey(t *testing.T) {
	at := time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)

	if got := PeriodKey(entity.ResetDaily, at); got != "20250307" {
		t.Errorf("daily period key = %q", got)
	}
	if got := PeriodKey(entity.ResetMonthly, at); got != "202503" {
		t.Errorf("monthly period key = %q", got)
	}
	if got := PeriodKey(entity.ResetYearly, at); got != "2025" {
		t.Errorf("yearly period key = %q", got)
	}
	if got := PeriodKey(entity.ResetNever, at); got != "" {
		t.Errorf("never period key = %q, want empty", got)
	}
}
