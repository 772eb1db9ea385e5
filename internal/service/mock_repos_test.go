package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"eating-management/backend/config"
	"eating-management/backend/internal/mealslot"
	"eating-management/backend/internal/model"
	"eating-management/backend/internal/repository"
	pkgerrors "eating-management/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		user.ID = "user-" + user.Username
	}
	for _, u := range m.users {
		if u.Username == user.Username {
			return pkgerrors.ErrDuplicateKey
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListActiveMembers(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.User
	for _, u := range m.users {
		if u.Role == model.RoleMember && u.IsActive {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].FullName != result[j].FullName {
			return result[i].FullName < result[j].FullName
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *mockUserRepo) List(_ context.Context, role string, offset, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	var all []model.User
	for _, u := range m.users {
		if role == "" || u.Role == role {
			all = append(all, *u)
		}
	}
	m.mu.Unlock()
	sort.Slice(all, func(i, j int) bool {
		if all[i].FullName != all[j].FullName {
			return all[i].FullName < all[j].FullName
		}
		return all[i].ID < all[j].ID
	})
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// addUser 测试辅助：直接写入用户
func (m *mockUserRepo) addUser(id, fullName, role string) *model.User {
	u := &model.User{
		ID:       id,
		Username: id,
		FullName: fullName,
		Email:    id + "@example.com",
		Phone:    "0900" + id,
		Role:     role,
		IsActive: true,
	}
	m.mu.Lock()
	m.users[id] = u
	m.mu.Unlock()
	return u
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	mu      sync.Mutex
	records map[string]*model.AttendanceRecord
	users   *mockUserRepo
	seq     int
	err     error // 非 nil 时所有调用返回该错误
}

func newMockAttendanceRepo(users *mockUserRepo) *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[string]*model.AttendanceRecord), users: users}
}

func (m *mockAttendanceRepo) insert(rec *model.AttendanceRecord) {
	m.seq++
	if rec.RecordID == "" {
		rec.RecordID = fmt.Sprintf("rec-%d", m.seq)
	}
	rec.CreatedAt = time.Date(2024, 6, 1, 0, 0, m.seq, 0, time.UTC)
	m.records[rec.RecordID] = rec
}

func (m *mockAttendanceRepo) CreateCancellation(_ context.Context, rec *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	rec.Kind = model.RecordKindCancellation
	for _, r := range m.records {
		if r.IsCancellation() && r.UserID == rec.UserID && r.MealDate == rec.MealDate && r.MealType == rec.MealType {
			return pkgerrors.ErrDuplicateKey
		}
	}
	m.insert(rec)
	return nil
}

func (m *mockAttendanceRepo) Create(_ context.Context, rec *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.insert(rec)
	return nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id string) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if r, ok := m.records[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.records[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockAttendanceRepo) filter(keep func(r *model.AttendanceRecord) bool) []model.AttendanceRecord {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if keep(r) {
			cp := *r
			cp.User, _ = m.users.GetByID(context.Background(), r.UserID)
			cp.Registrar, _ = m.users.GetByID(context.Background(), r.RegisteredBy)
			result = append(result, cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].MealDate != result[j].MealDate {
			return result[i].MealDate < result[j].MealDate
		}
		if result[i].MealType != result[j].MealType {
			return result[i].MealType > result[j].MealType
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (m *mockAttendanceRepo) ListBySlot(_ context.Context, date, mealType string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.filter(func(r *model.AttendanceRecord) bool {
		return r.MealDate == date && r.MealType == mealType
	}), nil
}

func (m *mockAttendanceRepo) ListByDateRange(_ context.Context, from, to string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.filter(func(r *model.AttendanceRecord) bool {
		return r.MealDate >= from && r.MealDate <= to
	}), nil
}

func (m *mockAttendanceRepo) ListByUser(_ context.Context, userID, from, to string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.filter(func(r *model.AttendanceRecord) bool {
		return (r.UserID == userID || r.RegisteredBy == userID) && r.MealDate >= from && r.MealDate <= to
	}), nil
}

func (m *mockAttendanceRepo) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

// ── Mock ActivityLogRepository ──

type mockActivityLogRepo struct {
	mu   sync.Mutex
	logs []model.ActivityLog
	err  error
}

func newMockActivityLogRepo() *mockActivityLogRepo {
	return &mockActivityLogRepo{}
}

func (m *mockActivityLogRepo) Create(_ context.Context, log *model.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if log.LogID == "" {
		log.LogID = fmt.Sprintf("log-%d", len(m.logs)+1)
	}
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockActivityLogRepo) List(_ context.Context, filter repository.ActivityLogFilter, offset, limit int) ([]model.ActivityLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []model.ActivityLog
	for _, l := range m.logs {
		if filter.UserID != "" && l.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		matched = append(matched, l)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *mockActivityLogRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []string
	for _, l := range m.logs {
		result = append(result, l.Action)
	}
	return result
}

// ── Mock NotificationDeliveryRepository ──

type mockNotificationDeliveryRepo struct{}

func (mockNotificationDeliveryRepo) Claim(context.Context, string, string, time.Time) (bool, error) {
	return true, nil
}


func (mockNotificationDeliveryRepo) PurgeBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// ═══════════════════════════════════════════════════════════
// 测试夹具
// ═══════════════════════════════════════════════════════════

var errStoreDown = errors.New("connection refused")

// testClock 可拨动的测试时钟
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func testCalendar(t *testing.T) *mealslot.Calendar {
	t.Helper()
	cal, err := mealslot.NewCalendarFromConfig(&config.MealConfig{
		Timezone:     "Asia/Ho_Chi_Minh",
		LunchTime:    "11:30",
		LunchCutoff:  "08:30",
		DinnerTime:   "18:00",
		DinnerCutoff: "14:30",
	})
	if err != nil {
		t.Fatalf("创建日历失败: %v", err)
	}
	return cal
}

// localTime 组织时区下的时刻
func localTime(t *testing.T, cal *mealslot.Calendar, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, cal.Location())
	if err != nil {
		t.Fatalf("解析时间失败: %v", err)
	}
	return ts
}

type testFixture struct {
	cal   *mealslot.Calendar
	clock *testClock
	users *mockUserRepo
	att   *mockAttendanceRepo
	logs  *mockActivityLogRepo
	repo  *repository.Repository
}

func newTestFixture(t *testing.T, now string) *testFixture {
	t.Helper()
	cal := testCalendar(t)
	users := newMockUserRepo()
	att := newMockAttendanceRepo(users)
	logs := newMockActivityLogRepo()
	return &testFixture{
		cal:   cal,
		clock: &testClock{now: localTime(t, cal, now)},
		users: users,
		att:   att,
		logs:  logs,
		repo: &repository.Repository{
			User:                 users,
			Attendance:           att,
			ActivityLog:          logs,
			NotificationDelivery: mockNotificationDeliveryRepo{},
		},
	}
}

func (f *testFixture) ledger() LedgerService {
	logger := zap.NewNop()
	return NewLedgerService(f.repo, f.cal, NewAuditService(f.repo, logger), 30*time.Minute, f.clock.Now, logger)
}

func (f *testFixture) aggregator() AggregatorService {
	return NewAggregatorService(f.repo, f.cal, &config.ReportConfig{UnitPrice: 30000, Currency: "VND"}, zap.NewNop())
}
