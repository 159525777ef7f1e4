package carriers

import (
	"net/url"
	"regexp"
	"strings"
)

const placeholder = "{trackingNumber}"

// Carrier — неизменяемое описание перевозчика: имя, стабильный код,
// шаблон ссылки на сайт и список паттернов трек-номеров.
type Carrier struct {
	Name        string
	Code        string
	URLTemplate string
	Patterns    []*regexp.Regexp
}

// Matches проверяет нормализованный токен: достаточно совпадения
// хотя бы одного паттерна.
func (c *Carrier) Matches(token string) bool {
	for _, p := range c.Patterns {
		if p.MatchString(token) {
			return true
		}
	}
	return false
}

// TrackingURL подставляет URL-кодированный номер в шаблон перевозчика.
func (c *Carrier) TrackingURL(trackingNumber string) string {
	return strings.Replace(c.URLTemplate, placeholder, url.QueryEscape(Normalize(trackingNumber)), 1)
}

// Registry хранит перевозчиков и фиксированный порядок разрешения
// неоднозначностей. Собирается один раз на старте процесса и дальше
// только читается.
type Registry struct {
	byCode   map[string]*Carrier
	priority []*Carrier
}

// NewRegistry регистрирует встроенный набор перевозчиков.
// Порядок в priority — это весь алгоритм tie-break'а: UPS и FedEx имеют
// самые специфичные форматы, у USPS паттерны самые широкие (любые 20-22
// цифры в большом диапазоне префиксов), поэтому он всегда последний.
func NewRegistry() *Registry {
	r := &Registry{byCode: make(map[string]*Carrier)}
	for _, c := range []*Carrier{newUPS(), newFedEx(), newDHL(), newUSPS()} {
		r.byCode[c.Code] = c
		r.priority = append(r.priority, c)
	}
	return r
}

// Get возвращает перевозчика по коду или nil.
func (r *Registry) Get(code string) *Carrier {
	return r.byCode[code]
}

// All возвращает перевозчиков в порядке приоритета.
func (r *Registry) All() []*Carrier {
	out := make([]*Carrier, len(r.priority))
	copy(out, r.priority)
	return out
}

// Classify сопоставляет токен ровно одному перевозчику. Перевозчики
// перебираются строго в порядке приоритета, побеждает первое совпадение;
// "лучшее" совпадение не ищется. Нет совпадений — nil: это валидный
// результат "перевозчик неизвестен", а не ошибка.
func (r *Registry) Classify(token string) *Carrier {
	cleaned := Normalize(token)
	if cleaned == "" {
		return nil
	}
	for _, c := range r.priority {
		if c.Matches(cleaned) {
			return c
		}
	}
	return nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize приводит кандидата к канонической форме: без пробельных
// символов, в верхнем регистре. Классификация выполняется только по
// нормализованному токену.
func Normalize(s string) string {
	return strings.ToUpper(whitespaceRe.ReplaceAllString(s, ""))
}
