package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/models"
)

// ErrEntityNotFound возвращается, когда строка сущности, которую нужно
// заблокировать, не существует.
var ErrEntityNotFound = errors.New("metrics entity not found")

// ApplyFunc вычисляет следующий снапшот из последнего. Возвращает nil,
// если запись снапшота не требуется; второй результат true означает
// обновление последней строки на месте.
type ApplyFunc func(latest *models.MetricSnapshot) (next *models.MetricSnapshot, inPlace bool)

// SnapshotRepository хранит снапшоты метрик и сериализует запись по сущности.
type SnapshotRepository interface {
	// ApplyLocked выполняет цикл «прочитать последний → решить → записать»
	// под эксклюзивной блокировкой сущности в одной транзакции.
	ApplyLocked(ctx context.Context, ref models.EntityRef, apply ApplyFunc) (*models.MetricSnapshot, error)

	// Latest возвращает последний снапшот сущности или nil.
	Latest(ctx context.Context, ref models.EntityRef) (*models.MetricSnapshot, error)

	// ListRange возвращает снапшоты сущности в интервале по возрастанию времени.
	ListRange(ctx context.Context, ref models.EntityRef, from, to time.Time) ([]models.MetricSnapshot, error)
}
