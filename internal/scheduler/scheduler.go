// Package scheduler 用餐提醒调度：按 cron 周期扫描即将开餐的餐次，
// 向未取消的成员各投递一次提醒。
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"eating-management/backend/config"
	"eating-management/backend/internal/mealslot"
	"eating-management/backend/internal/model"
	"eating-management/backend/internal/repository"
	pkgerrors "eating-management/backend/pkg/errors"
	"eating-management/backend/pkg/metrics"
)

var tracer = otel.GetTracerProvider().Tracer("eating-management/backend/internal/scheduler")

// State 调度器状态：Idle → Scanning → Dispatching → Idle
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateDispatching
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateDispatching:
		return "dispatching"
	default:
		return "idle"
	}
}

// Result 单次扫描结果
type Result struct {
	Slots   int
	Sent    int
	Skipped int // 已提醒过（去重命中）
	Failed  int
}

// recipient 待投递的 (餐次, 成员)
type recipient struct {
	slot mealslot.Slot
	user model.User
}

// Scheduler 用餐提醒调度器
type Scheduler struct {
	cfg      *config.SchedulerConfig
	cal      *mealslot.Calendar
	repo     *repository.Repository
	dedup    DedupStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time

	state atomic.Int32
	cron  *cron.Cron
}

// New 创建调度器
func New(
	cfg *config.SchedulerConfig,
	cal *mealslot.Calendar,
	repo *repository.Repository,
	dedup DedupStore,
	notifier Notifier,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		cal:      cal,
		repo:     repo,
		dedup:    dedup,
		notifier: notifier,
		logger:   logger.Named("scheduler"),
		now:      time.Now,
	}
}

// State 当前状态
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

// Start 按 cfg.Spec 启动周期任务（组织时区），上一轮未结束时跳过本轮
func (s *Scheduler) Start() error {
	cl := cronLogger{s.logger.Sugar()}
	c := cron.New(
		cron.WithLocation(s.cal.Location()),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(s.cfg.Spec, s.tick); err != nil {
		return fmt.Errorf("无效的调度表达式 %q: %w", s.cfg.Spec, err)
	}
	s.cron = c
	c.Start()

	s.logger.Info("用餐提醒调度已启动",
		zap.String("spec", s.cfg.Spec),
		zap.Duration("lead", s.cfg.Lead),
		zap.Duration("window", s.cfg.Window),
	)
	return nil
}

// Stop 停止调度并等待进行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("等待提醒任务结束超时")
	}
}

// tick 单次调度入口，panic 只记录不外抛
func (s *Scheduler) tick() {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.setState(StateIdle)
			metrics.SchedulerTicksTotal.WithLabelValues("panic").Inc()
			s.logger.Error("提醒任务 panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	// cron 触发总会略晚于整分，窗口以计划时刻为准
	res, err := s.RunOnce(context.Background(), s.now().Truncate(time.Minute))
	if err != nil {
		metrics.SchedulerTicksTotal.WithLabelValues("failed").Inc()
		s.logger.Error("提醒任务失败，等待下一轮", zap.Error(err))
		return
	}
	metrics.SchedulerTicksTotal.WithLabelValues("ok").Inc()
	if res.Slots > 0 {
		s.logger.Info("提醒任务完成",
			zap.Int("slots", res.Slots),
			zap.Int("sent", res.Sent),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// RunOnce 扫描开餐时刻落在 [now+lead, now+lead+window) 的餐次并投递提醒
// 存储查询失败时整轮放弃，不补发；单个成员投递失败不影响其他成员
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (Result, error) {
	ctx, span := tracer.Start(ctx, "Scheduler.RunOnce")
	defer span.End()
	defer s.setState(StateIdle)

	var res Result

	// ── Scanning ──
	s.setState(StateScanning)
	from := now.Add(s.cfg.Lead)
	slots := s.cal.SlotsStartingIn(from, from.Add(s.cfg.Window))
	res.Slots = len(slots)
	span.SetAttributes(attribute.Int("scheduler.slots", len(slots)))
	if len(slots) == 0 {
		return res, nil
	}

	s.purgeExpired(ctx, now)

	var recipients []recipient
	for _, slot := range slots {
		users, err := s.eaters(ctx, slot)
		if err != nil {
			span.RecordError(err)
			return res, err
		}
		for _, u := range users {
			recipients = append(recipients, recipient{slot: slot, user: u})
		}
	}

	// ── Dispatching ──
	s.setState(StateDispatching)
	for _, rc := range recipients {
		switch s.dispatch(ctx, rc) {
		case "sent":
			res.Sent++
		case "skipped":
			res.Skipped++
		default:
			res.Failed++
		}
	}
	span.SetAttributes(
		attribute.Int("scheduler.sent", res.Sent),
		attribute.Int("scheduler.failed", res.Failed),
	)
	return res, nil
}

// eaters 在职成员减去该餐次已取消的成员，查询受 QueryTimeout 限制
func (s *Scheduler) eaters(ctx context.Context, slot mealslot.Slot) ([]model.User, error) {
	qctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	members, err := s.repo.User.ListActiveMembers(qctx)
	if err != nil {
		return nil, storeError("查询成员", err)
	}
	recs, err := s.repo.Attendance.ListBySlot(qctx, slot.Date, string(slot.Meal))
	if err != nil {
		return nil, storeError("查询餐次记录", err)
	}

	cancelled := make(map[string]bool)
	for i := range recs {
		if recs[i].IsCancellation() {
			cancelled[recs[i].UserID] = true
		}
	}
	result := make([]model.User, 0, len(members))
	for _, m := range members {
		if !cancelled[m.ID] {
			result = append(result, m)
		}
	}
	return result, nil
}

// dispatch 先占位再投递，返回 sent | skipped | failed
func (s *Scheduler) dispatch(ctx context.Context, rc recipient) string {
	slotID := rc.slot.ID()
	fields := []zap.Field{zap.String("slot", slotID), zap.String("user_id", rc.user.ID)}

	claimed, err := s.dedup.Claim(ctx, slotID, rc.user.ID, s.cfg.DedupTTL)
	if err != nil {
		// 无法确认是否已提醒过，宁可漏发也不重复
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		s.logger.Warn("提醒去重占位失败，跳过", append(fields, zap.Error(err))...)
		return "failed"
	}
	if !claimed {
		metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
		return "skipped"
	}

	if err := s.safeNotify(ctx, rc); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		s.logger.Warn("提醒投递失败", append(fields, zap.Error(err))...)
		return "failed"
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return "sent"
}

func (s *Scheduler) safeNotify(ctx context.Context, rc recipient) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()
	return s.notifier.Notify(ctx, rc.user, rc.slot)
}

// purgeExpired 清理数据库去重表中的过期占位，失败不影响本轮
func (s *Scheduler) purgeExpired(ctx context.Context, now time.Time) {
	p, ok := s.dedup.(purger)
	if !ok || s.cfg.DedupTTL <= 0 {
		return
	}
	n, err := p.Purge(ctx, now.Add(-s.cfg.DedupTTL))
	if err != nil {
		s.logger.Warn("清理过期提醒记录失败", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Debug("已清理过期提醒记录", zap.Int64("rows", n))
	}
}

func storeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, pkgerrors.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// cronLogger 将 cron 内部日志转发到 zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
