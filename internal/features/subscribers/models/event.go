package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MemberStatus это статус участника канала, как его сообщает Telegram.
type MemberStatus string

const (
	StatusMember        MemberStatus = "member"
	StatusAdministrator MemberStatus = "administrator"
	StatusCreator       MemberStatus = "creator"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
	StatusBanned        MemberStatus = "banned"
	StatusRestricted    MemberStatus = "restricted"
)

// AllStatuses возвращает полный домен статусов (для исчерпывающих тестов).
func AllStatuses() []MemberStatus {
	return []MemberStatus{
		StatusMember, StatusAdministrator, StatusCreator,
		StatusLeft, StatusKicked, StatusBanned, StatusRestricted,
	}
}

// EventType это классифицированный тип события подписчика.
type EventType string

const (
	EventJoined     EventType = "joined"
	EventLeft       EventType = "left"
	EventKicked     EventType = "kicked"
	EventBanned     EventType = "banned"
	EventRestricted EventType = "restricted"
	// EventNone означает переход, который не порождает событие
	EventNone EventType = ""
)

// SubscriberEvent это неизменяемая запись одного перехода подписчика.
// Журнал событий append-only: ядро никогда не изменяет и не удаляет записи.
type SubscriberEvent struct {
	ID        uuid.UUID
	ChannelID uuid.UUID

	// Атрибуция: ссылка, по которой пришёл подписчик (может отсутствовать)
	InviteLinkID *uuid.UUID

	TelegramUserID int64
	Username       string
	FirstName      string

	EventType EventType
	UserData  map[string]interface{}
	EventAt   time.Time

	CreatedAt time.Time
}

// DisplayName возвращает отображаемое имя подписчика.
func (e *SubscriberEvent) DisplayName() string {
	if e.Username != "" {
		return e.Username
	}
	if e.FirstName != "" {
		return e.FirstName
	}
	return fmt.Sprintf("User %d", e.TelegramUserID)
}

// CounterDelta возвращает вклад события в счётчик подписчиков канала.
func (e *SubscriberEvent) CounterDelta() int64 {
	switch e.EventType {
	case EventJoined:
		return 1
	case EventLeft, EventKicked:
		return -1
	default:
		return 0
	}
}
