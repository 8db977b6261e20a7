package service

// MergeReactionDiff восстанавливает абсолютные счётчики реакций из
// инкрементального diff-а платформы (old/new списки эмодзи).
//
// Сначала полностью применяется old-проход (декремент с полом 0), затем
// new-проход (инкремент); один и тот же эмодзи может встретиться в обоих
// списках. После обоих проходов эмодзи с нулевым счётчиком удаляются,
// чтобы карта оставалась разреженной.
func MergeReactionDiff(counts map[string]int64, old, new []string) map[string]int64 {
	merged := make(map[string]int64, len(counts)+len(new))
	for emoji, n := range counts {
		merged[emoji] = n
	}

	for _, emoji := range old {
		if merged[emoji] > 0 {
			merged[emoji]--
		}
	}
	for _, emoji := range new {
		merged[emoji]++
	}

	for emoji, n := range merged {
		if n == 0 {
			delete(merged, emoji)
		}
	}
	return merged
}
