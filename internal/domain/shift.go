package domain

import (
	"encoding/xml"
	"strconv"
	"time"
)

type ShiftStatus string

const (
	ShiftStatusActive ShiftStatus = "active"
	ShiftStatusEnded  ShiftStatus = "end"
	ShiftStatusClosed ShiftStatus = "closed"
)

type Shift struct {
	XMLName         xml.Name   `json:"-" xml:"shift"`
	ID              int64      `json:"id" xml:"id"`
	Type            string     `json:"type" xml:"type"`
	TypeID          int64      `json:"-" xml:"-"`
	Owner           string     `json:"owner" xml:"owner"`
	StartDate       time.Time  `json:"startDate" xml:"startDate"`
	EndDate         *time.Time `json:"endDate" xml:"endDate,omitempty"`
	Description     string     `json:"description" xml:"description,omitempty"`
	LeadOperator    string     `json:"leadOperator" xml:"leadOperator,omitempty"`
	OnShiftPersonal string     `json:"onShiftPersonal" xml:"onShiftPersonal,omitempty"`
	Report          string     `json:"report" xml:"report,omitempty"`
	CloseShiftUser  *string    `json:"closeShiftUser" xml:"closeShiftUser,omitempty"`
}

// Status 由结束时间和关闭人推导出班次当前所处的状态
func (s *Shift) Status() ShiftStatus {
	switch {
	case s.EndDate == nil:
		return ShiftStatusActive
	case s.CloseShiftUser == nil:
		return ShiftStatusEnded
	default:
		return ShiftStatusClosed
	}
}

// AuditString 只输出 id 和负责人，用于审计日志
func (s *Shift) AuditString() string {
	return strconv.FormatInt(s.ID, 10) + ", " + s.Owner
}

// Clone 返回一个深拷贝，避免调用方修改存储中的数据
func (s *Shift) Clone() *Shift {
	c := *s
	if s.EndDate != nil {
		endDate := *s.EndDate
		c.EndDate = &endDate
	}
	if s.CloseShiftUser != nil {
		user := *s.CloseShiftUser
		c.CloseShiftUser = &user
	}
	return &c
}

// ShiftPatch 是结束、关闭班次时客户端允许修改的字段，其余字段一律以数据库中的值为准
type ShiftPatch struct {
	Description     *string
	OnShiftPersonal *string
	Report          *string
}

func (p ShiftPatch) Apply(s *Shift) {
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.OnShiftPersonal != nil {
		s.OnShiftPersonal = *p.OnShiftPersonal
	}
	if p.Report != nil {
		s.Report = *p.Report
	}
}

type Shifts struct {
	XMLName xml.Name `json:"-" xml:"shifts"`
	Shifts  []*Shift `json:"shifts" xml:"shift"`
}
