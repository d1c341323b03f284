package dto

// ── 课程模块 DTO ──

// CreateClassRequest 创建课程请求
// Time 为自由文本，约定 "HH:MM - HH:MM"；不符合约定的课程仍会保存，但不出现在周视图中
type CreateClassRequest struct {
	Subject   string `json:"subject"   binding:"required,min=1,max=100"`
	Day       string `json:"day"       binding:"required,weekday"`
	Time      string `json:"time"      binding:"required,max=32"`
	Room      string `json:"room"      binding:"omitempty,max=100"`
	Professor string `json:"professor" binding:"omitempty,max=100"`
	Color     string `json:"color"     binding:"omitempty,max=32"`
}

// UpdateClassRequest 更新课程请求（部分字段）
type UpdateClassRequest struct {
	Subject   *string `json:"subject"   binding:"omitempty,min=1,max=100"`
	Day       *string `json:"day"       binding:"omitempty,weekday"`
	Time      *string `json:"time"      binding:"omitempty,min=1,max=32"`
	Room      *string `json:"room"      binding:"omitempty,max=100"`
	Professor *string `json:"professor" binding:"omitempty,max=100"`
	Color     *string `json:"color"     binding:"omitempty,max=32"`
}

// ClassResponse 课程信息响应
type ClassResponse struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Day       string `json:"day"`
	Time      string `json:"time"`
	Room      string `json:"room,omitempty"`
	Professor string `json:"professor,omitempty"`
	Color     string `json:"color,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ScheduleResponse 课表（每次变更后返回重新查询的完整列表）
type ScheduleResponse struct {
	Classes []ClassResponse `json:"classes"`
}

// DeleteResultResponse 批量删除结果
type DeleteResultResponse struct {
	Deleted int64           `json:"deleted"`
	Classes []ClassResponse `json:"classes"`
}
