package view

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const placeholderImage = "/static/img/placeholder.jpg"

var titleCaser = cases.Title(language.Spanish)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"money":    formatMoney,
		"title":    titleCase,
		"upper":    strings.ToUpper,
		"join":     strings.Join,
		"image":    imageOrPlaceholder,
		"plural":   plural,
		"selected": selected,
		"dict":     dict,
		"at":       at,
		"noticeIcon": func(kind NoticeKind) string {
			return noticeIcons[kind]
		},
	}
}

// formatMoney formats an amount with two decimals and thousand separators
// Example: 1234.5 -> "$1,234.50"
func formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	intPart, decPart, _ := strings.Cut(d.StringFixed(2), ".")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteRune(',')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String() + "." + decPart
}

// titleCase capitalises labels such as order states ("pendiente" -> "Pendiente")
func titleCase(s string) string {
	return titleCaser.String(s)
}

func imageOrPlaceholder(src string) string {
	if strings.TrimSpace(src) == "" {
		return placeholderImage
	}
	return src
}

// plural picks the singular or plural noun for n
func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func selected(a, b string) bool {
	return a == b
}

// at returns the formatted i-th value of a chart series, or "" when the
// series is shorter than its labels
func at(data []decimal.Decimal, i int) string {
	if i < 0 || i >= len(data) {
		return ""
	}
	return data[i].String()
}

// dict builds a map from key/value pairs so a partial can take several arguments
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}
