package dto

// ImportResultResponse ICS 导入结果
type ImportResultResponse struct {
	Imported int             `json:"imported"`
	Skipped  int             `json:"skipped"`
	Classes  []ClassResponse `json:"classes"`
}
