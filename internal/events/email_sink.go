package events

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"socialspark-backend/internal/model"
	"socialspark-backend/internal/util"

	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// UserFinder 查询事件相关用户的资料
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Sender 发送一封邮件
type Sender interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPConfig 邮件服务器配置
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// NewDialer 根据配置创建 SMTP 拨号器
func NewDialer(cfg SMTPConfig) *mail.Dialer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.Timeout = 20 * time.Second
	d.SSL = cfg.Port == 465
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return d
}

// EmailSink 在收到新的连接请求时通知接收者
type EmailSink struct {
	users       UserFinder
	sender      Sender
	from        string
	frontendURL string
}

// NewEmailSink 创建邮件事件处理器
func NewEmailSink(users UserFinder, sender Sender, from, frontendURL string) *EmailSink {
	return &EmailSink{users: users, sender: sender, from: from, frontendURL: frontendURL}
}

func (s *EmailSink) Handle(ctx context.Context, event Event) error {
	if event.Name != ConnectionRequested {
		return nil
	}

	to, err := s.users.FindByID(ctx, event.Data["to_user_id"])
	if err != nil {
		return fmt.Errorf("查询接收者失败: %w", err)
	}
	from, err := s.users.FindByID(ctx, event.Data["from_user_id"])
	if err != nil {
		return fmt.Errorf("查询请求者失败: %w", err)
	}
	if to == nil || from == nil || to.Email == "" {
		util.Logger.Warn("连接请求邮件缺少收件人信息", zap.String("event_id", event.ID))
		return nil
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to.Email)
	m.SetHeader("Subject", fmt.Sprintf("%s 想与你建立连接", from.FullName))
	m.SetBody("text/html", connectionRequestBody(to, from, s.frontendURL))

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	util.Logger.Info("连接请求邮件发送成功", zap.String("to_user_id", to.ID), zap.String("event_id", event.ID))
	return nil
}

func connectionRequestBody(to, from *model.User, frontendURL string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; padding: 20px;">
  <h2>Hi %s,</h2>
  <p>You have a new connection request from %s - @%s</p>
  <p>Click <a href="%s/connections" style="color: #10b981;">here</a> to accept or reject the request</p>
  <br/>
  <p>Thanks,<br/>SocialSpark</p>
</div>`, to.FullName, from.FullName, from.Username, frontendURL)
}
