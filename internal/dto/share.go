package dto

// ── 分享模块 DTO ──

// ShareResponse 分享状态响应
type ShareResponse struct {
	Enabled  bool   `json:"enabled"`
	Token    string `json:"token,omitempty"`
	ShareURL string `json:"share_url,omitempty"`
}

// ShareSnapshot 镜像到实时数据库的分享快照
type ShareSnapshot struct {
	Owner     string            `json:"owner"`
	Courses   []CourseResponse  `json:"courses"`
	Overrides map[string]string `json:"overrides"` // "<course_id>_<yyyy-MM-dd>" → status
	UpdatedAt string            `json:"updated_at"`
}
