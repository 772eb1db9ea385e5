package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"eating-management/backend/config"
	"eating-management/backend/internal/mealslot"
	"eating-management/backend/internal/model"
)

// ErrNoAddress 用户未登记邮箱
var ErrNoAddress = errors.New("用户未登记邮箱")

// Notifier 用餐提醒投递通道
type Notifier interface {
	Notify(ctx context.Context, user model.User, slot mealslot.Slot) error
}

// ────────── MailNotifier ──────────

// MailNotifier 通过 SMTP 发送提醒邮件
type MailNotifier struct {
	client *mail.Client
	from   string
}

// NewMailNotifier 根据 SMTP 配置创建邮件通道
func NewMailNotifier(cfg *config.MailConfig) (*MailNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建 SMTP 客户端失败: %w", err)
	}
	return &MailNotifier{client: client, from: cfg.From}, nil
}

func (n *MailNotifier) Notify(ctx context.Context, user model.User, slot mealslot.Slot) error {
	if user.Email == "" {
		return ErrNoAddress
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("发件人地址无效: %w", err)
	}
	if err := msg.To(user.Email); err != nil {
		return fmt.Errorf("收件人地址无效: %w", err)
	}
	subject, body := reminderText(user, slot)
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	return n.client.DialAndSendWithContext(ctx, msg)
}

// reminderText 提醒邮件内容（组织所在地语言）
func reminderText(user model.User, slot mealslot.Slot) (subject, body string) {
	meal := "Bữa trưa"
	if slot.Meal == mealslot.Dinner {
		meal = "Bữa tối"
	}
	start := slot.StartsAt.Format("15:04")
	date := slot.StartsAt.Format("02/01/2006")

	subject = fmt.Sprintf("Nhắc nhở: %s lúc %s ngày %s", meal, start, date)
	body = fmt.Sprintf(
		"Xin chào %s,\n\n%s ngày %s sẽ bắt đầu lúc %s.\nBạn đang được ghi nhận là có ăn bữa này.\n",
		user.FullName, meal, date, start,
	)
	return subject, body
}

// ────────── LogNotifier ──────────

// LogNotifier 未配置 SMTP 时只写日志
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 创建日志通道
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, user model.User, slot mealslot.Slot) error {
	n.logger.Info("用餐提醒",
		zap.String("user_id", user.ID),
		zap.String("full_name", user.FullName),
		zap.String("slot", slot.ID()),
		zap.Time("starts_at", slot.StartsAt),
	)
	return nil
}
