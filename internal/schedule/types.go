package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ── 课程状态解析模块错误 ──

var (
	ErrInvalidDate   = errors.New("日期无效")
	ErrInvalidCourse = errors.New("课程数据无效")
	ErrUnknownMode   = errors.New("未知的上课方式")
	ErrStatusUnknown = errors.New("当前状态未知，无法切换")
	ErrInvalidKey    = errors.New("覆盖键格式无效")
)

// Parity 单双周
type Parity string

const (
	ParityOdd  Parity = "odd"
	ParityEven Parity = "even"
)

// Mode 课程上课方式（周期规则）
type Mode string

const (
	ModeOddOnsite    Mode = "odd-onsite"    // 单周线下 / 双周线上
	ModeEvenOnsite   Mode = "even-onsite"   // 双周线下 / 单周线上
	ModeOnlineAlways Mode = "online-always" // 始终线上
	ModeOnsiteAlways Mode = "onsite-always" // 始终线下
)

// Valid 是否为已知的上课方式
func (m Mode) Valid() bool {
	switch m {
	case ModeOddOnsite, ModeEvenOnsite, ModeOnlineAlways, ModeOnsiteAlways:
		return true
	}
	return false
}

// Status 某一天课程的上课状态
type Status string

const (
	StatusOnline  Status = "online"
	StatusOnsite  Status = "onsite"
	StatusUnknown Status = "unknown"
)

// Valid 仅 online / onsite 可作为覆盖值
func (s Status) Valid() bool {
	return s == StatusOnline || s == StatusOnsite
}

// Opposite 返回相反状态；unknown 没有相反状态
func (s Status) Opposite() (Status, error) {
	switch s {
	case StatusOnline:
		return StatusOnsite, nil
	case StatusOnsite:
		return StatusOnline, nil
	}
	return StatusUnknown, ErrStatusUnknown
}

// Course 解析所需的课程周期信息（展示字段不在此处）
type Course struct {
	ID        string
	DayOfWeek int // 1=Monday … 7=Sunday
	StartTime string
	EndTime   string
	Mode      Mode
}

// Validate 校验课程记录。写入前由调用方执行，上课方式未知时返回 ErrUnknownMode。
func (c Course) Validate() error {
	if err := c.validateShape(); err != nil {
		return err
	}
	if c.DayOfWeek < 1 || c.DayOfWeek > 7 {
		return fmt.Errorf("%w: day_of_week 必须在 1-7 之间", ErrInvalidCourse)
	}
	start, _ := ParseClock(c.StartTime)
	end, _ := ParseClock(c.EndTime)
	if end <= start {
		return fmt.Errorf("%w: 结束时间必须晚于开始时间", ErrInvalidCourse)
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, c.Mode)
	}
	return nil
}

// validateShape 解析时的最低要求：ID 非空，时间格式合法
func (c Course) validateShape() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: 缺少课程 ID", ErrInvalidCourse)
	}
	if _, err := ParseClock(c.StartTime); err != nil {
		return fmt.Errorf("%w: start_time %q", ErrInvalidCourse, c.StartTime)
	}
	if _, err := ParseClock(c.EndTime); err != nil {
		return fmt.Errorf("%w: end_time %q", ErrInvalidCourse, c.EndTime)
	}
	return nil
}

// ParseClock 解析 "HH:MM"，返回距 00:00 的分钟数
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return 0, fmt.Errorf("时间格式无效: %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Resolution 解析结果
type Resolution struct {
	Status       Status `json:"status"`
	IsOverridden bool   `json:"is_overridden"`
}

// ── 覆盖键 ──

const dateLayout = "2006-01-02"

// OverrideKey 覆盖记录的复合键：课程 ID + 所在周周一日期（yyyy-MM-dd）
type OverrideKey struct {
	CourseID  string
	WeekStart string
}

// KeyFor 计算某课程在 date 所在周的覆盖键
func KeyFor(courseID string, date time.Time) (OverrideKey, error) {
	if date.IsZero() {
		return OverrideKey{}, ErrInvalidDate
	}
	return OverrideKey{CourseID: courseID, WeekStart: WeekStart(date).Format(dateLayout)}, nil
}

// String 旧版字符串形式 "<courseID>_<yyyy-MM-dd>"，用于日志与数据备份
func (k OverrideKey) String() string {
	return k.CourseID + "_" + k.WeekStart
}

// ParseOverrideKey 解析旧版字符串形式。日期固定 10 位，因此按最后一个 "_" 切分，课程 ID 中允许出现 "_"。
func ParseOverrideKey(s string) (OverrideKey, error) {
	i := strings.LastIndex(s, "_")
	if i <= 0 || i == len(s)-1 {
		return OverrideKey{}, ErrInvalidKey
	}
	week := s[i+1:]
	d, err := time.Parse(dateLayout, week)
	if err != nil || d.Weekday() != time.Monday {
		return OverrideKey{}, ErrInvalidKey
	}
	return OverrideKey{CourseID: s[:i], WeekStart: week}, nil
}

// Overrides 某一时刻的覆盖快照
type Overrides map[OverrideKey]Status

// Clone 深拷贝
func (o Overrides) Clone() Overrides {
	out := make(Overrides, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}
