package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/models"
)

// ReactionDiff это инкрементальное изменение реакций сообщения,
// как его сообщает Telegram: старый и новый списки эмодзи.
type ReactionDiff struct {
	Old []string
	New []string
}

// Partial это частичное наблюдение метрик. Отсутствующее поле (nil)
// сохраняет прежнее значение снапшота (carry-forward).
type Partial struct {
	// Абсолютные значения: last-write-wins
	Views           *int64
	Forwards        *int64
	SubscriberCount *int64
	ChurnRate       *float64

	// Дельты: применяются к унаследованному значению
	Reactions       *ReactionDiff
	ButtonClick     *string
	SubscriberDelta *int64
}

// Apply выполняет один шаг слияния: решает, попадает ли наблюдение
// в окно слияния последнего снапшота, и строит строку для записи.
// Возвращает снапшот и true, если это обновление последней строки на месте,
// либо false, если нужна новая строка (с carry-forward не указанных полей).
//
// Вызывающий обязан держать эксклюзивную блокировку сущности на протяжении
// чтения последнего снапшота, Apply и записи результата.
func Apply(ref models.EntityRef, latest *models.MetricSnapshot, p Partial, observedAt time.Time) (*models.MetricSnapshot, bool) {
	inWindow := latest != nil && observedAt.Sub(latest.MeasuredAt) <= ref.MergeWindow()

	var next *models.MetricSnapshot
	if latest != nil {
		next = latest.Clone()
	} else {
		next = &models.MetricSnapshot{Entity: ref}
	}

	if !inWindow {
		next.ID = uuid.New()
		next.CreatedAt = time.Time{}
		// Накопительный счётчик прироста живёт внутри одного окна
		next.SubscriberGrowth = 0
	}

	if p.Views != nil {
		next.Views = *p.Views
	}
	if p.Forwards != nil {
		next.Forwards = *p.Forwards
	}
	if p.Reactions != nil {
		next.Reactions = MergeReactionDiff(next.Reactions, p.Reactions.Old, p.Reactions.New)
	}
	if p.ButtonClick != nil {
		if next.ButtonClicks == nil {
			next.ButtonClicks = make(map[string]int64, 1)
		}
		next.ButtonClicks[*p.ButtonClick]++
	}
	if p.SubscriberCount != nil {
		count := *p.SubscriberCount
		if count < 0 {
			count = 0
		}
		// Самое первое наблюдение задаёт базу и не считается приростом
		if latest != nil {
			next.SubscriberGrowth += count - next.SubscriberCount
		}
		next.SubscriberCount = count
	}
	if p.SubscriberDelta != nil {
		count := next.SubscriberCount + *p.SubscriberDelta
		if count < 0 {
			count = 0
		}
		// Прирост отражает фактически применённое изменение с учётом пола 0
		next.SubscriberGrowth += count - next.SubscriberCount
		next.SubscriberCount = count
	}
	if p.ChurnRate != nil {
		next.ChurnRate = *p.ChurnRate
	}

	// Переупорядоченная доставка внутри окна не двигает время снапшота назад
	if !inWindow || observedAt.After(next.MeasuredAt) {
		next.MeasuredAt = observedAt
	}

	return next, inWindow
}
