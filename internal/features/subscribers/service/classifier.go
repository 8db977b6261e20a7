package service

import (
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/models"
)

// Classify определяет тип события подписчика по переходу статуса.
// Функция тотальна и детерминирована на всём домене пар статусов;
// переходы, не описанные правилами, дают EventNone и молча отбрасываются.
func Classify(oldStatus, newStatus models.MemberStatus) models.EventType {
	// Пользователь вступил в канал
	if isOutside(oldStatus) && isInside(newStatus) {
		return models.EventJoined
	}

	// Пользователь покинул канал
	if isActive(oldStatus) && newStatus == models.StatusLeft {
		return models.EventLeft
	}

	// Пользователь был исключён
	if isActive(oldStatus) && newStatus == models.StatusKicked {
		return models.EventKicked
	}

	// Бан и ограничения фиксируются независимо от прежнего статуса
	if newStatus == models.StatusBanned {
		return models.EventBanned
	}
	if newStatus == models.StatusRestricted {
		return models.EventRestricted
	}

	return models.EventNone
}

func isOutside(s models.MemberStatus) bool {
	return s == models.StatusLeft || s == models.StatusKicked
}

func isInside(s models.MemberStatus) bool {
	return s == models.StatusMember || s == models.StatusAdministrator || s == models.StatusCreator
}

func isActive(s models.MemberStatus) bool {
	return s == models.StatusMember || s == models.StatusAdministrator
}
