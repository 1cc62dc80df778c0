package domain

import (
	"cmp"
	"slices"
)

// PhotoVariant - один из размеров фотографии.
type PhotoVariant struct {
	Width   int
	FileRef string
}

// Smallest возвращает вариант с минимальной шириной.
// При равной ширине выигрывает тот, что раньше в списке.
func Smallest(variants []PhotoVariant) (PhotoVariant, bool) {
	return firstAfterSort(variants, func(a, b PhotoVariant) int {
		return cmp.Compare(a.Width, b.Width)
	})
}

// Largest возвращает вариант с максимальной шириной.
// При равной ширине выигрывает тот, что раньше в списке.
func Largest(variants []PhotoVariant) (PhotoVariant, bool) {
	return firstAfterSort(variants, func(a, b PhotoVariant) int {
		return cmp.Compare(b.Width, a.Width)
	})
}

func firstAfterSort(variants []PhotoVariant, compare func(a, b PhotoVariant) int) (PhotoVariant, bool) {
	if len(variants) == 0 {
		return PhotoVariant{}, false
	}
	sorted := slices.Clone(variants)
	slices.SortStableFunc(sorted, compare)
	return sorted[0], true
}
