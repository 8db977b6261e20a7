package service_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/models"
	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/subscribers/service"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		old  models.MemberStatus
		new  models.MemberStatus
		want models.EventType
	}{
		{models.StatusLeft, models.StatusMember, models.EventJoined},
		{models.StatusKicked, models.StatusMember, models.EventJoined},
		{models.StatusLeft, models.StatusAdministrator, models.EventJoined},
		{models.StatusLeft, models.StatusCreator, models.EventJoined},

		{models.StatusMember, models.StatusLeft, models.EventLeft},
		{models.StatusAdministrator, models.StatusLeft, models.EventLeft},

		{models.StatusMember, models.StatusKicked, models.EventKicked},
		{models.StatusAdministrator, models.StatusKicked, models.EventKicked},

		// Бан и ограничение фиксируются из любого прежнего статуса
		{models.StatusMember, models.StatusBanned, models.EventBanned},
		{models.StatusLeft, models.StatusBanned, models.EventBanned},
		{models.StatusMember, models.StatusRestricted, models.EventRestricted},
		{models.StatusRestricted, models.StatusRestricted, models.EventRestricted},

		// Не порождают событий
		{models.StatusMember, models.StatusMember, models.EventNone},
		{models.StatusMember, models.StatusAdministrator, models.EventNone},
		{models.StatusAdministrator, models.StatusMember, models.EventNone},
		{models.StatusCreator, models.StatusLeft, models.EventNone},
		{models.StatusLeft, models.StatusLeft, models.EventNone},
		{models.StatusLeft, models.StatusKicked, models.EventNone},
		{models.StatusKicked, models.StatusKicked, models.EventNone},
		{models.StatusRestricted, models.StatusMember, models.EventNone},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.old, tt.new), func(t *testing.T) {
			assert.Equal(t, tt.want, service.Classify(tt.old, tt.new))
		})
	}
}

// Classify должна быть тотальной: любой переход даёт детерминированный
// результат, а joined исключает одновременный left/kicked.
func TestClassify_TotalOverStatusDomain(t *testing.T) {
	for _, oldStatus := range models.AllStatuses() {
		for _, newStatus := range models.AllStatuses() {
			got := service.Classify(oldStatus, newStatus)
			again := service.Classify(oldStatus, newStatus)
			assert.Equal(t, got, again, "%s->%s must be deterministic", oldStatus, newStatus)

			switch got {
			case models.EventJoined,
				models.EventLeft,
				models.EventKicked,
				models.EventBanned,
				models.EventRestricted,
				models.EventNone:
			default:
				t.Fatalf("%s->%s produced unknown event %q", oldStatus, newStatus, got)
			}
		}
	}
}
