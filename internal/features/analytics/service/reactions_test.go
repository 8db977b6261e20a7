package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrAr2rD/contentForceTG-sub000/internal/features/analytics/service"
)

func TestMergeReactionDiff_AddsNewEmoji(t *testing.T) {
	counts := map[string]int64{"👍": 3}

	merged := service.MergeReactionDiff(counts, []string{"👍"}, []string{"👍", "❤️"})

	assert.Equal(t, map[string]int64{"👍": 3, "❤️": 1}, merged)
}

func TestMergeReactionDiff_RemovesReaction(t *testing.T) {
	counts := map[string]int64{"👍": 2, "❤️": 1}

	merged := service.MergeReactionDiff(counts, []string{"❤️"}, nil)

	assert.Equal(t, map[string]int64{"👍": 2}, merged)
}

func TestMergeReactionDiff_DecrementFloorsAtZero(t *testing.T) {
	merged := service.MergeReactionDiff(nil, []string{"🔥", "🔥"}, nil)

	assert.Empty(t, merged)
}

func TestMergeReactionDiff_SwapReaction(t *testing.T) {
	counts := map[string]int64{"👍": 1}

	merged := service.MergeReactionDiff(counts, []string{"👍"}, []string{"❤️"})

	assert.Equal(t, map[string]int64{"❤️": 1}, merged)
}

func TestMergeReactionDiff_DoesNotMutateInput(t *testing.T) {
	counts := map[string]int64{"👍": 5}

	_ = service.MergeReactionDiff(counts, []string{"👍"}, nil)

	assert.Equal(t, int64(5), counts["👍"])
}
