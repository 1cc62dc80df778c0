package services

import "unicode/utf16"

// utf16Slice вырезает фрагмент строки по смещению и длине в UTF-16 code units,
// в которых платформа задает границы entity.
func utf16Slice(text string, offset, length int) (string, bool) {
	units := utf16.Encode([]rune(text))
	if offset < 0 || length < 0 || offset+length > len(units) {
		return "", false
	}
	return string(utf16.Decode(units[offset : offset+length])), true
}

// utf16Cut удаляет из строки фрагмент, заданный в UTF-16 code units.
func utf16Cut(text string, offset, length int) (string, bool) {
	units := utf16.Encode([]rune(text))
	if offset < 0 || length < 0 || offset+length > len(units) {
		return "", false
	}
	rest := append(units[:offset:offset], units[offset+length:]...)
	return string(utf16.Decode(rest)), true
}

// utf16Len возвращает длину строки в UTF-16 code units.
func utf16Len(text string) int {
	return len(utf16.Encode([]rune(text)))
}
