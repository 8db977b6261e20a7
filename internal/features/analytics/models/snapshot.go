package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind определяет, к какой сущности относится снапшот метрик.
type EntityKind string

const (
	EntityMessage EntityKind = "message"
	EntityChannel EntityKind = "channel"
)

// Окна слияния: события внутри окна обновляют текущий снапшот,
// события за пределами окна создают новую строку.
const (
	MessageMergeWindow = 5 * time.Minute
	ChannelMergeWindow = time.Hour
)

// EntityRef идентифицирует сущность, которой принадлежат метрики.
type EntityRef struct {
	Kind EntityKind
	ID   uuid.UUID
}

func MessageRef(id uuid.UUID) EntityRef { return EntityRef{Kind: EntityMessage, ID: id} }
func ChannelRef(id uuid.UUID) EntityRef { return EntityRef{Kind: EntityChannel, ID: id} }

// MergeWindow возвращает окно слияния для типа сущности.
func (r EntityRef) MergeWindow() time.Duration {
	if r.Kind == EntityChannel {
		return ChannelMergeWindow
	}
	return MessageMergeWindow
}

// MetricSnapshot это агрегированная строка метрик для одной сущности.
// Не более одного "текущего" снапшота на сущность внутри окна слияния.
type MetricSnapshot struct {
	ID     uuid.UUID
	Entity EntityRef

	// Метрики сообщений
	Views        int64
	Forwards     int64
	Reactions    map[string]int64
	ButtonClicks map[string]int64

	// Метрики канала
	SubscriberCount  int64
	SubscriberGrowth int64
	ChurnRate        float64

	MeasuredAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone возвращает глубокую копию снапшота (карты копируются).
func (s *MetricSnapshot) Clone() *MetricSnapshot {
	c := *s
	c.Reactions = copyCounts(s.Reactions)
	c.ButtonClicks = copyCounts(s.ButtonClicks)
	return &c
}

// TotalReactions возвращает сумму всех реакций.
func (s *MetricSnapshot) TotalReactions() int64 {
	var total int64
	for _, n := range s.Reactions {
		total += n
	}
	return total
}

// EngagementRate возвращает процент взаимодействий (реакции, пересылки,
// клики) от просмотров.
func (s *MetricSnapshot) EngagementRate() float64 {
	if s.Views == 0 {
		return 0.0
	}
	interactions := s.TotalReactions() + s.Forwards + s.totalClicks()
	return float64(interactions) / float64(s.Views) * 100
}

func (s *MetricSnapshot) totalClicks() int64 {
	var total int64
	for _, n := range s.ButtonClicks {
		total += n
	}
	return total
}

// GrowthRate возвращает процент прироста от числа подписчиков.
func (s *MetricSnapshot) GrowthRate() float64 {
	if s.SubscriberCount == 0 {
		return 0.0
	}
	return float64(s.SubscriberGrowth) / float64(s.SubscriberCount) * 100
}

func copyCounts(m map[string]int64) map[string]int64 {
	if m == nil {
		return nil
	}
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
