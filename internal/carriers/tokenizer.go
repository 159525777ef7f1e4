package carriers

import (
	"regexp"
	"strings"
)

const (
	// Короче 8 символов не бывает ни один реальный трек-номер; такие слова
	// отбрасываются до вызова классификатора.
	minWordLen = 8
	// Нераспознанные токены от 10 символов всё равно принимаются: посылку
	// можно вести в режиме "перевозчик неизвестен".
	minPlausibleLen = 10
)

var (
	delimitersRe = regexp.MustCompile(`[\n\r,;]+`)
	nonAlnumRe   = regexp.MustCompile(`[^0-9A-Za-z]`)
)

// ExtractCandidates достаёт кандидатов в трек-номера из произвольного
// вставленного текста: строки разделяются переводами строк, запятыми и
// точками с запятой, внутри строки — пробелами. Выжившие слова нормализуются
// (не-буквенно-цифровые символы выбрасываются, верхний регистр) и
// принимаются, если их узнал классификатор либо они достаточно длинные.
// Дубликаты убираются с сохранением порядка первого появления.
// Для любого входа, включая пустой, функция возвращает срез без ошибок.
func (r *Registry) ExtractCandidates(text string) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})

	for _, line := range delimitersRe.Split(text, -1) {
		for _, word := range strings.Fields(line) {
			if len(word) < minWordLen {
				continue
			}
			token := strings.ToUpper(nonAlnumRe.ReplaceAllString(word, ""))
			if token == "" {
				continue
			}
			if r.Classify(token) == nil && len(token) < minPlausibleLen {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			out = append(out, token)
		}
	}
	return out
}
