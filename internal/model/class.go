package model

// Class 课程表，对应 classes
// Time 为展示用的自由文本，约定格式 "HH:MM - HH:MM"
type Class struct {
	ClassID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    string `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Subject   string `gorm:"type:varchar(100);not null"                     json:"subject"`
	Day       string `gorm:"type:varchar(10);not null"                      json:"day"`
	Time      string `gorm:"type:varchar(32);not null"                      json:"time"`
	Room      string `gorm:"type:varchar(100);not null;default:''"          json:"room"`
	Professor string `gorm:"type:varchar(100);not null;default:''"          json:"professor"`
	Color     string `gorm:"type:varchar(32);not null;default:''"           json:"color"`
	Timestamps
}

// TableName 指定表名
func (Class) TableName() string { return "classes" }

// SlotDay 所在星期
func (c Class) SlotDay() string { return c.Day }

// SlotTime 时间文本
func (c Class) SlotTime() string { return c.Time }
