package service

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/reinieltalplacido/classalign/internal/model"
	"github.com/reinieltalplacido/classalign/internal/timegrid"
)

// ── ICS 解析与生成 ──────────────────────────────────────────
//
// 解析：每个 VEVENT 对应一门课程
//   - SUMMARY → 课程名，DTSTART 的星期与时刻 → day / time
//   - DTEND 缺失时按 DURATION 推算，二者都缺失时默认 1 小时
//   - LOCATION → room，DESCRIPTION 中的 "Professor: xxx" → professor
//   - 周末事件与重复事件（同名 + 同星期 + 同时间）跳过
//
// 生成：每门格式规范的课程生成一个按周重复的 VEVENT，锚定在参考周；
// 非 UTC 时区附带 VTIMEZONE，DTSTART/DTEND 使用 TZID 本地时间
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize     = 5 * 1024 * 1024 // 5MB
	icsDefaultDuration = time.Hour
	icsProductID       = "-//ClassAlign//Weekly Schedule//EN"
	icsProfessorPrefix = "Professor: "
)

// ErrImportInvalidICS 上传内容不是合法的 ICS 日历
var ErrImportInvalidICS = errors.New("ICS 文件格式无效")

var icsDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseICS 解析 ICS 内容并转为课程列表；skipped 为被跳过的事件数
func ParseICS(reader io.Reader, userID string, loc *time.Location) (classes []model.Class, skipped int, err error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrImportInvalidICS, err)
	}

	seen := make(map[string]bool)
	for _, evt := range cal.Events() {
		class, ok := parseVEvent(evt, loc)
		if !ok {
			skipped++
			continue
		}
		key := classKey(class.Subject, class.Day, class.Time)
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true
		class.UserID = userID
		classes = append(classes, class)
	}
	return classes, skipped, nil
}

// parseVEvent 解析单个 VEVENT 组件
func parseVEvent(evt *ics.VEvent, loc *time.Location) (model.Class, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return model.Class{}, false
	}

	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return model.Class{}, false
	}
	dtEnd, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil {
		dtEnd = dtStart.Add(eventDuration(evt))
	}

	day, ok := timegrid.NormalizeWeekday(dtStart.Weekday().String())
	if !ok {
		return model.Class{}, false
	}

	class := model.Class{
		Subject: truncateRunes(strings.TrimSpace(unescapeICSText(summary.Value)), maxSubjectLen),
		Day:     day,
		Time:    dtStart.Format("15:04") + " - " + dtEnd.Format("15:04"),
	}
	if p := evt.GetProperty(ics.ComponentPropertyLocation); p != nil {
		class.Room = truncateRunes(strings.TrimSpace(unescapeICSText(p.Value)), 100)
	}
	if p := evt.GetProperty(ics.ComponentPropertyDescription); p != nil {
		for _, line := range strings.Split(unescapeICSText(p.Value), "\n") {
			if rest, ok := strings.CutPrefix(strings.TrimSpace(line), icsProfessorPrefix); ok {
				class.Professor = truncateRunes(strings.TrimSpace(rest), 100)
			}
		}
	}
	return class, true
}

// eventDuration 解析 DURATION（如 PT1H30M），缺失或无法解析时返回默认时长
func eventDuration(evt *ics.VEvent) time.Duration {
	prop := evt.GetProperty(ics.ComponentPropertyDuration)
	if prop == nil {
		return icsDefaultDuration
	}
	m := icsDurationPattern.FindStringSubmatch(strings.TrimSpace(prop.Value))
	if m == nil {
		return icsDefaultDuration
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		d += time.Duration(n) * u
	}
	if d <= 0 {
		return icsDefaultDuration
	}
	return d
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性，结果转换到 loc
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := strings.TrimSpace(prop.Value)

	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{"20060102T150405", "20060102"} {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}

// BuildICS 生成按周重复的日历；时间文本不是 "HH:MM - HH:MM" 或星期无效的课程被跳过
// anchor 为参考周内任意时刻（loc 时区），事件从该周对应的星期开始
func BuildICS(classes []model.Class, anchor time.Time, loc *time.Location) (*ics.Calendar, int) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName("ClassAlign")
	cal.SetXWRTimezone(loc.String())

	monday := weekStart(anchor.In(loc))
	stamp := time.Now().UTC()
	skipped := 0

	// 非 UTC 时区写本地墙上时间 + TZID，周重复跨越夏令时切换时上课时刻不漂移
	floating := loc != time.UTC
	if floating {
		addVTimezone(cal, loc, monday.Year())
	}

	for i := range classes {
		c := &classes[i]
		start, end, ok := timegrid.ParseRange(c.Time)
		offset := weekdayOffset(c.Day)
		if !ok || end <= start || offset < 0 {
			skipped++
			continue
		}

		y, m, d := monday.AddDate(0, 0, offset).Date()
		startAt := time.Date(y, m, d, int(start/60), int(start%60), 0, 0, loc)
		endAt := time.Date(y, m, d, int(end/60), int(end%60), 0, 0, loc)

		uid := c.ClassID
		if uid == "" {
			uid = uuid.NewString()
		}
		event := cal.AddEvent(uid + "@classalign")
		event.SetDtStampTime(stamp)
		if floating {
			event.SetProperty(ics.ComponentPropertyDtStart, startAt.Format(icsLocalLayout), withTZID(loc))
			event.SetProperty(ics.ComponentPropertyDtEnd, endAt.Format(icsLocalLayout), withTZID(loc))
		} else {
			event.SetStartAt(startAt)
			event.SetEndAt(endAt)
		}
		event.SetSummary(c.Subject)
		event.AddRrule("FREQ=WEEKLY")
		if c.Room != "" {
			event.SetLocation(c.Room)
		}
		if c.Professor != "" {
			event.SetDescription(icsProfessorPrefix + c.Professor)
		}
	}
	return cal, skipped
}

// weekStart 返回 t 所在周周一的零点
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// weekdayOffset Monday=0 … Friday=4，其它返回 -1
func weekdayOffset(day string) int {
	for i, d := range timegrid.Weekdays {
		if d == day {
			return i
		}
	}
	return -1
}

func classKey(subject, day, timeText string) string {
	return strings.ToLower(subject) + "|" + day + "|" + timeText
}

func unescapeICSText(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return r.Replace(s)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
