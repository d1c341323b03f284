package dto

// ── 周视图 DTO ──

// CalendarResponse 周视图
// Cells[i][j] 对应 Rows[i] 与 Days[j]，空单元格为 null
type CalendarResponse struct {
	Days   []string               `json:"days"`
	Rows   []string               `json:"rows"`
	Cells  [][]*ClassResponse     `json:"cells"`
	Hidden []HiddenClassResponse  `json:"hidden"`
	Stats  CalendarStatsResponse  `json:"stats"`
	Window CalendarWindowResponse `json:"window"`
}

// HiddenClassResponse 未出现在周视图中的课程及原因
type HiddenClassResponse struct {
	Class  ClassResponse `json:"class"`
	Reason string        `json:"reason"`
}

// CalendarStatsResponse 课表统计
type CalendarStatsResponse struct {
	TotalClasses     int    `json:"total_classes"`
	BusiestDay       string `json:"busiest_day,omitempty"`
	DistinctSubjects int    `json:"distinct_subjects"`
	ScheduledMinutes int    `json:"scheduled_minutes"`
}

// CalendarWindowResponse 显示窗口（"HH:MM"）
type CalendarWindowResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
