package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// InviteLink это пригласительная ссылка канала с отслеживанием атрибуции.
type InviteLink struct {
	ID        uuid.UUID
	ChannelID uuid.UUID

	InviteLink string
	Name       string
	// Источник трафика: vk, instagram, email...
	Source string

	// Монотонный счётчик: увеличивается только атрибуцированными joined
	JoinCount   int64
	MemberLimit *int64
	ExpireDate  *time.Time

	CreatesJoinRequest bool
	Revoked            bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired сообщает, истекла ли ссылка.
func (l *InviteLink) Expired(now time.Time) bool {
	return l.ExpireDate != nil && !l.ExpireDate.After(now)
}

// LimitReached сообщает, достигнут ли лимит участников.
func (l *InviteLink) LimitReached() bool {
	return l.MemberLimit != nil && l.JoinCount >= *l.MemberLimit
}

// Active сообщает, пригодна ли ссылка для новых вступлений.
func (l *InviteLink) Active(now time.Time) bool {
	return !l.Revoked && !l.Expired(now) && !l.LimitReached()
}

// ConversionRate возвращает процент оставшихся в канале от вступивших.
// Считается от журнала событий: stayed = joined − (left + kicked).
func (l *InviteLink) ConversionRate(joined, leftOrKicked int64) float64 {
	if l.JoinCount == 0 {
		return 0.0
	}
	stayed := joined - leftOrKicked
	return math.Round(float64(stayed)/float64(l.JoinCount)*100*100) / 100
}

// LinkStats это сводка по ссылке для дашборда.
// Счётчики берутся из журнала событий, не из монотонного JoinCount.
type LinkStats struct {
	Link           InviteLink `json:"link"`
	Joined         int64      `json:"joined"`
	Left           int64      `json:"left"`
	Kicked         int64      `json:"kicked"`
	Retained       int64      `json:"retained"`
	ConversionRate float64    `json:"conversion_rate"`
	Active         bool       `json:"active"`
}
