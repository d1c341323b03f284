package timegrid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Minutes 自零点起的分钟数，是课表时间在各层之间传递的唯一表示
type Minutes int

const (
	// DefaultStart 默认显示窗口起点 07:00
	DefaultStart Minutes = 7 * 60
	// DefaultEnd 默认显示窗口终点 18:00
	DefaultEnd Minutes = 18 * 60
)

// strictClock 仅接受两位小时的 24 小时制 "HH:MM"，用于窗口扩展
var strictClock = regexp.MustCompile(`^\d{2}:\d{2}$`)

// ParseClock 解析 24 小时制（"HH:MM"、"H:MM"、"H"，小时 0–23）或 12 小时制（"H:MM AM/PM"）时间。
// 缺省分钟按 0 处理；无法识别的输入返回 false。
func ParseClock(s string) (Minutes, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	fields := strings.Fields(s)
	if len(fields) > 2 {
		return 0, false
	}
	clock := fields[0]
	suffix := ""
	if len(fields) == 2 {
		suffix = strings.ToUpper(fields[1])
	} else if up := strings.ToUpper(clock); strings.HasSuffix(up, "AM") || strings.HasSuffix(up, "PM") {
		// 兼容 "9:00AM"
		suffix = up[len(up)-2:]
		clock = clock[:len(clock)-2]
	}
	if suffix != "" && suffix != "AM" && suffix != "PM" {
		return 0, false
	}

	hh, mm, hasMinutes := strings.Cut(clock, ":")
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 {
		return 0, false
	}
	m := 0
	if hasMinutes && mm != "" {
		m, err = strconv.Atoi(mm)
		if err != nil || m < 0 || m > 59 {
			return 0, false
		}
	}

	switch suffix {
	case "AM", "PM":
		if h < 1 || h > 12 {
			return 0, false
		}
		if suffix == "PM" && h != 12 {
			h += 12
		}
		if suffix == "AM" && h == 12 {
			h = 0
		}
	default:
		// 行标签只能表示 00:00–23:59，"24:00" 会与 "12:00 PM" 重名
		if h > 23 {
			return 0, false
		}
	}

	return Minutes(h*60 + m), true
}

// Label 12 小时制行标签，如 "9:00 AM"、"1:00 PM"
func (m Minutes) Label() string {
	h := int(m) / 60
	mm := int(m) % 60
	ampm := "AM"
	if h >= 12 {
		ampm = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, mm, ampm)
}

// String 24 小时制 "HH:MM"
func (m Minutes) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// StartOf 取课程时间字段中显示的开始时间（按 " - " 切分后的第一段）
func StartOf(timeText string) (Minutes, bool) {
	start, _, _ := strings.Cut(timeText, " - ")
	return ParseClock(start)
}

// ParseRange 解析严格的 "HH:MM - HH:MM" 区间，两端都必须是两位小时
func ParseRange(timeText string) (start, end Minutes, ok bool) {
	startText, endText, found := splitRange(timeText)
	if !found || !strictClock.MatchString(startText) || !strictClock.MatchString(endText) {
		return 0, 0, false
	}
	start, ok1 := ParseClock(startText)
	end, ok2 := ParseClock(endText)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return start, end, true
}

// splitRange 按 "-" 切分并去除空白；没有 "-" 时 found=false
func splitRange(timeText string) (start, end string, found bool) {
	parts := strings.Split(timeText, "-")
	start = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		end = strings.TrimSpace(parts[1])
		found = true
	}
	return start, end, found
}

// NormalizeTime 将 "9am"、"9:00 AM - 10:30 AM"、"14:00-15:00" 等写法规范为
// "HH:MM" 或 "HH:MM - HH:MM"；无法解析时原样返回（去除首尾空白）
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	startText, endText, found := splitRange(s)
	start, ok := ParseClock(startText)
	if !ok {
		return s
	}
	if !found {
		return start.String()
	}
	end, ok := ParseClock(endText)
	if !ok {
		return s
	}
	return start.String() + " - " + end.String()
}
