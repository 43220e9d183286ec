package domain

import "time"

type AuditAction string

const (
	AuditActionStart      AuditAction = "start"
	AuditActionEnd        AuditAction = "end"
	AuditActionClose      AuditAction = "close"
	AuditActionCreateType AuditAction = "create_type"
)

// AuditEvent 是每次写操作之后发送到消息队列的记录
type AuditEvent struct {
	Action  AuditAction `json:"action"`
	Actor   string      `json:"actor"`
	ShiftID int64       `json:"shiftID,omitempty"`
	Owner   string      `json:"owner,omitempty"`
	Type    string      `json:"type"`
	Status  ShiftStatus `json:"status,omitempty"`
	Report  string      `json:"report,omitempty"`
	At      time.Time   `json:"at"`
}

func NewShiftAuditEvent(action AuditAction, actor string, s *Shift, at time.Time) AuditEvent {
	return AuditEvent{
		Action:  action,
		Actor:   actor,
		ShiftID: s.ID,
		Owner:   s.Owner,
		Type:    s.Type,
		Status:  s.Status(),
		Report:  s.Report,
		At:      at,
	}
}
