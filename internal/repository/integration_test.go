//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"eating-management/backend/internal/model"
	"eating-management/backend/internal/repository"
	"eating-management/backend/pkg/database"
	pkgerrors "eating-management/backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup（PostgreSQL，需 TEST_DATABASE_DSN）
// ═══════════════════════════════════════════════════════════

var pgDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=eating_management_test sslmode=disable TimeZone=UTC"
	}

	var err error
	pgDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 与生产一致：使用嵌入的 SQL 迁移
	sqlDB, _ := pgDB.DB()
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "数据库迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func pgMember(t *testing.T, repo *repository.Repository) *model.User {
	t.Helper()
	u := &model.User{
		Username:     fmt.Sprintf("it-%d", time.Now().UnixNano()),
		FullName:     "集成测试成员",
		Email:        "it@example.com",
		Phone:        "0900000000",
		PasswordHash: "x",
		Role:         model.RoleMember,
		IsActive:     true,
	}
	if err := repo.User.Create(context.Background(), u); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	t.Cleanup(func() {
		pgDB.Where("user_id = ?", u.ID).Delete(&model.AttendanceRecord{})
		pgDB.Where("user_id = ?", u.ID).Delete(&model.NotificationDelivery{})
		pgDB.Where("user_id = ?", u.ID).Delete(&model.User{})
	})
	return u
}

// ═══════════════════════════════════════════════════════════
// 并发取消：部分唯一索引保证同一餐次只有一条取消记录
// ═══════════════════════════════════════════════════════════

func TestPG_ConcurrentCancellation(t *testing.T) {
	repo := repository.NewRepository(pgDB)
	u := pgMember(t, repo)

	const workers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, dups int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Attendance.CreateCancellation(context.Background(), &model.AttendanceRecord{
				UserID: u.ID, MealDate: "2024-06-10", MealType: "dinner", RegisteredBy: u.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, pkgerrors.ErrDuplicateKey):
				dups++
			default:
				t.Errorf("非预期错误: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || dups != workers-1 {
		t.Errorf("期望 1 次成功 %d 次重复，实际: ok=%d dup=%d", workers-1, ok, dups)
	}

	recs, err := repo.Attendance.ListBySlot(context.Background(), "2024-06-10", "dinner")
	if err != nil {
		t.Fatalf("ListBySlot 失败: %v", err)
	}
	n := 0
	for _, r := range recs {
		if r.UserID == u.ID && r.IsCancellation() {
			n++
		}
	}
	if n != 1 {
		t.Errorf("期望 1 条取消记录，实际: %d", n)
	}
}

func TestPG_GuestAdditionsNotUnique(t *testing.T) {
	repo := repository.NewRepository(pgDB)
	u := pgMember(t, repo)

	for i := 0; i < 2; i++ {
		err := repo.Attendance.Create(context.Background(), &model.AttendanceRecord{
			UserID: u.ID, MealDate: "2024-06-10", MealType: "lunch",
			Kind: model.RecordKindGuestAddition, GuestName: "Khach", GuestCount: 2, RegisteredBy: u.ID,
		})
		if err != nil {
			t.Fatalf("第 %d 次加餐失败: %v", i+1, err)
		}
	}
}

func TestPG_NotificationClaim(t *testing.T) {
	repo := repository.NewRepository(pgDB)
	u := pgMember(t, repo)
	ctx := context.Background()

	first, err := repo.NotificationDelivery.Claim(ctx, "2024-06-10-lunch", u.ID, time.Now().UTC())
	if err != nil || !first {
		t.Fatalf("首次占位应成功: %v %v", first, err)
	}
	second, err := repo.NotificationDelivery.Claim(ctx, "2024-06-10-lunch", u.ID, time.Now().UTC())
	if err != nil || second {
		t.Errorf("重复占位应返回 false: %v %v", second, err)
	}
}

// UUID 列上的非法 id 按不存在处理，而不是 22P02
func TestPG_MalformedIDs(t *testing.T) {
	repo := repository.NewRepository(pgDB)
	ctx := context.Background()

	if _, err := repo.Attendance.GetByID(ctx, "abc"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际: %v", err)
	}
	if err := repo.Attendance.Delete(ctx, "abc"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际: %v", err)
	}
	if _, err := repo.User.GetByID(ctx, "x"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际: %v", err)
	}
	if _, _, err := repo.ActivityLog.List(ctx, repository.ActivityLogFilter{UserID: "x"}, 0, 10); err != nil {
		t.Errorf("非法 user_id 过滤不应报错，实际: %v", err)
	}
}
