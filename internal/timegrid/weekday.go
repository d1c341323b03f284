package timegrid

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// NormalizeWeekday 将 "monday"、"MON"、"Tue" 等写法规范为 Weekdays 中的名称
func NormalizeWeekday(s string) (string, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "."))
	if s == "" {
		return "", false
	}
	title := titleCaser.String(strings.ToLower(s))
	for _, d := range Weekdays {
		if title == d {
			return d, true
		}
		if len(title) >= 3 && strings.HasPrefix(d, title) {
			return d, true
		}
	}
	return "", false
}
