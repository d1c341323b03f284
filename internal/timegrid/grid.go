// Package timegrid 根据课程列表推导周视图的时间行，并提供 (星期, 行) → 课程 的查找。
//
// 纯计算，无 I/O，不返回错误：格式异常的时间只会导致课程不在网格中出现，
// 这些课程可通过 Grid.Hidden 查看原因。
package timegrid

const rowStep Minutes = 60

// Weekdays 周视图的列（固定为周一至周五）
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// Slot 可放入网格的记录
type Slot interface {
	SlotDay() string
	SlotTime() string
}

// HiddenReason 课程未出现在网格中的原因
type HiddenReason string

const (
	HiddenMalformedTime HiddenReason = "malformed_time" // 开始时间无法解析
	HiddenOffGrid       HiddenReason = "off_grid"       // 开始时间不在任何整点行上
	HiddenShadowed      HiddenReason = "shadowed"       // 同一单元格已有更早的课程
	HiddenUnknownDay    HiddenReason = "unknown_day"    // 星期不在周一至周五
)

// HiddenSlot 不可见课程的诊断信息
type HiddenSlot[T Slot] struct {
	Index  int // 在输入列表中的位置
	Item   T
	Reason HiddenReason
}

type cellKey struct {
	day string
	at  Minutes
}

// Grid 周视图网格
type Grid[T Slot] struct {
	items  []T
	start  Minutes
	end    Minutes
	rows   []Minutes
	index  map[cellKey]int
	hidden []HiddenSlot[T]
}

// Build 构建网格：
//  1. 窗口初始为 07:00–18:00；
//  2. 时间字段按 "-" 切分，符合 "HH:MM" 的开始/结束分别扩展窗口下界/上界；
//  3. 从下界到上界（含）每 60 分钟生成一行。
func Build[T Slot](items []T) *Grid[T] {
	g := &Grid[T]{
		items: items,
		start: DefaultStart,
		end:   DefaultEnd,
		index: make(map[cellKey]int, len(items)),
	}

	for _, item := range items {
		startText, endText, _ := splitRange(item.SlotTime())
		if strictClock.MatchString(startText) {
			if m, ok := ParseClock(startText); ok && m < g.start {
				g.start = m
			}
		}
		if strictClock.MatchString(endText) {
			if m, ok := ParseClock(endText); ok && m > g.end {
				g.end = m
			}
		}
	}

	for t := g.start; t <= g.end; t += rowStep {
		g.rows = append(g.rows, t)
	}

	for i, item := range items {
		at, ok := StartOf(item.SlotTime())
		if !ok {
			g.hidden = append(g.hidden, HiddenSlot[T]{Index: i, Item: item, Reason: HiddenMalformedTime})
			continue
		}
		key := cellKey{day: item.SlotDay(), at: at}
		if _, taken := g.index[key]; taken {
			g.hidden = append(g.hidden, HiddenSlot[T]{Index: i, Item: item, Reason: HiddenShadowed})
			continue
		}
		g.index[key] = i

		switch {
		case !isWeekday(key.day):
			g.hidden = append(g.hidden, HiddenSlot[T]{Index: i, Item: item, Reason: HiddenUnknownDay})
		case !g.onRow(at):
			g.hidden = append(g.hidden, HiddenSlot[T]{Index: i, Item: item, Reason: HiddenOffGrid})
		}
	}

	return g
}

// Rows 行标签（12 小时制），按时间升序
func (g *Grid[T]) Rows() []string {
	labels := make([]string, len(g.rows))
	for i, r := range g.rows {
		labels[i] = r.Label()
	}
	return labels
}

// RowMinutes 行对应的分钟值
func (g *Grid[T]) RowMinutes() []Minutes {
	out := make([]Minutes, len(g.rows))
	copy(out, g.rows)
	return out
}

// Window 显示窗口 [start, end]
func (g *Grid[T]) Window() (start, end Minutes) {
	return g.start, g.end
}

// Lookup 返回星期 day、行标签 label 对应的课程。
// 标签与课程开始时间使用同一解析器换算为分钟后精确比较；多门课程冲突时返回输入中的第一门。
func (g *Grid[T]) Lookup(day, label string) (T, bool) {
	var zero T
	at, ok := ParseClock(label)
	if !ok {
		return zero, false
	}
	i, ok := g.index[cellKey{day: day, at: at}]
	if !ok {
		return zero, false
	}
	return g.items[i], true
}

// Cells 以 [行][Weekdays] 排列的单元格，空单元格为 nil
func (g *Grid[T]) Cells() [][]*T {
	cells := make([][]*T, len(g.rows))
	for r, at := range g.rows {
		cells[r] = make([]*T, len(Weekdays))
		for d, day := range Weekdays {
			if i, ok := g.index[cellKey{day: day, at: at}]; ok {
				cells[r][d] = &g.items[i]
			}
		}
	}
	return cells
}

// Hidden 未出现在网格中的课程
func (g *Grid[T]) Hidden() []HiddenSlot[T] {
	return g.hidden
}

func (g *Grid[T]) onRow(at Minutes) bool {
	return at >= g.start && at <= g.end && (at-g.start)%rowStep == 0
}

func isWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}
