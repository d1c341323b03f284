package service

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// 本地时间（不带 Z），与 TZID 参数配合使用
const icsLocalLayout = "20060102T150405"

// withTZID DTSTART/DTEND 的 TZID 参数
func withTZID(loc *time.Location) ics.PropertyParameter {
	return &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{loc.String()}}
}

// tzTransition 一次 UTC 偏移变化
type tzTransition struct {
	at         time.Time // 变化发生的瞬间
	fromOffset int       // 秒
	toOffset   int
	name       string // 变化后的时区缩写
	dst        bool
}

// addVTimezone 按 loc 在 year 年的规则生成 VTIMEZONE。
// 每次偏移变化生成一个 STANDARD/DAYLIGHT 子组件，并以 "第 n 个星期 X" 的年度规则
// 重复，使跨年的周重复事件仍按本地墙上时间展开。
func addVTimezone(cal *ics.Calendar, loc *time.Location, year int) {
	tz := cal.AddTimezone(loc.String())

	transitions := zoneTransitions(loc, year)
	if len(transitions) == 0 {
		name, offset := time.Date(year, 1, 1, 0, 0, 0, 0, loc).Zone()
		std := &ics.Standard{}
		std.SetProperty(ics.ComponentProperty(ics.PropertyDtstart), "19700101T000000")
		std.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetfrom), utcOffset(offset))
		std.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetto), utcOffset(offset))
		std.SetProperty(ics.ComponentProperty(ics.PropertyTzname), name)
		tz.Components = append(tz.Components, std)
		return
	}

	for _, tr := range transitions {
		// DTSTART 为变化前偏移下的本地时间
		wall := tr.at.In(time.FixedZone("", tr.fromOffset))
		base := ics.ComponentBase{}
		base.SetProperty(ics.ComponentProperty(ics.PropertyDtstart), wall.Format(icsLocalLayout))
		base.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetfrom), utcOffset(tr.fromOffset))
		base.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetto), utcOffset(tr.toOffset))
		base.SetProperty(ics.ComponentProperty(ics.PropertyTzname), tr.name)
		base.SetProperty(ics.ComponentPropertyRrule, yearlyRule(wall))

		if tr.dst {
			tz.Components = append(tz.Components, &ics.Daylight{ComponentBase: base})
		} else {
			tz.Components = append(tz.Components, &ics.Standard{ComponentBase: base})
		}
	}
}

// zoneTransitions 找出 year 年内 loc 的所有偏移变化，精确到秒
func zoneTransitions(loc *time.Location, year int) []tzTransition {
	var out []tzTransition
	cur := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC)
	_, offset := cur.In(loc).Zone()

	for cur.Before(end) {
		next := cur.Add(24 * time.Hour)
		_, nextOffset := next.In(loc).Zone()
		if nextOffset != offset {
			lo, hi := cur, next
			for hi.Sub(lo) > time.Second {
				mid := lo.Add(hi.Sub(lo) / 2)
				if _, o := mid.In(loc).Zone(); o == offset {
					lo = mid
				} else {
					hi = mid
				}
			}
			after := hi.In(loc)
			name, _ := after.Zone()
			out = append(out, tzTransition{
				at:         hi,
				fromOffset: offset,
				toOffset:   nextOffset,
				name:       name,
				dst:        after.IsDST(),
			})
			offset = nextOffset
		}
		cur = next
	}
	return out
}

// yearlyRule 如 3 月第 2 个周日 → FREQ=YEARLY;BYMONTH=3;BYDAY=2SU；
// 落在当月最后 7 天内时使用 -1（最后一个）
func yearlyRule(t time.Time) string {
	days := [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}
	nth := (t.Day()-1)/7 + 1
	lastDay := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if t.Day()+7 > lastDay {
		nth = -1
	}
	return fmt.Sprintf("FREQ=YEARLY;BYMONTH=%d;BYDAY=%d%s", int(t.Month()), nth, days[t.Weekday()])
}

// utcOffset 秒数 → "+0800" / "-0500"
func utcOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d%02d", sign, seconds/3600, seconds/60%60)
}
