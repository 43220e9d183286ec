// Package notify 根据审计事件构建通知邮件
package notify

import (
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

var ErrNoRecipients = errors.New("no recipients")

// ShiftClosedMailData 是关班邮件模板使用的数据
type ShiftClosedMailData struct {
	ShiftID  int64
	Type     string
	Owner    string
	ClosedBy string
	Report   string
	ClosedAt string
}

func NewShiftClosedMailData(event domain.AuditEvent) ShiftClosedMailData {
	return ShiftClosedMailData{
		ShiftID:  event.ShiftID,
		Type:     event.Type,
		Owner:    event.Owner,
		ClosedBy: event.Actor,
		Report:   event.Report,
		ClosedAt: event.At.Local().Format(time.DateTime),
	}
}

// BuildShiftClosedMessage 构建关班报告邮件
func BuildShiftClosedMessage(from string, to []string, event domain.AuditEvent, tmpl *template.Template) (*mail.Msg, error) {
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(to...); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}
	if err := msg.SetBodyHTMLTemplate(tmpl, NewShiftClosedMailData(event)); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}
	msg.Subject(fmt.Sprintf("班次报告 - %s #%d", event.Type, event.ShiftID))

	return msg, nil
}
