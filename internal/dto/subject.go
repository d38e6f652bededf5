package dto

// ── 科目模块 DTO ──

// SubjectRequest 创建 / 更新科目请求
type SubjectRequest struct {
	Name  string `json:"name"  binding:"required,notblank,max=100"`
	Color string `json:"color" binding:"omitempty,max=20"`
}

// SubjectResponse 科目响应
type SubjectResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}
