package schedule

import "time"

// DefaultReferenceDate 参考日期：其所在周（周一 2025-12-01 开始）为第 1 周，即单周
var DefaultReferenceDate = time.Date(2025, time.December, 2, 0, 0, 0, 0, time.UTC)

// Resolver 课程线上/线下状态解析器。
// 无 I/O、无可变状态，可并发调用；覆盖集合由调用方按次传入。
type Resolver struct {
	referenceMonday time.Time
}

// NewResolver 以 reference 所在周为单周创建解析器；reference 为零值时使用 DefaultReferenceDate
func NewResolver(reference time.Time) *Resolver {
	if reference.IsZero() {
		reference = DefaultReferenceDate
	}
	return &Resolver{referenceMonday: WeekStart(reference)}
}

// ReferenceMonday 参考周的周一
func (r *Resolver) ReferenceMonday() time.Time {
	return r.referenceMonday
}

// civilDate 取 t 在其自身时区下的日历日期，统一到 UTC 零点，避免夏令时影响天数计算
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStart 返回 date 所在周的周一（周一为一周起点，与地区设置无关）
func WeekStart(date time.Time) time.Time {
	d := civilDate(date)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 … Sunday=6
	return d.AddDate(0, 0, -offset)
}

// floorDiv 向负无穷取整的整数除法
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// WeekOffset date 所在周相对参考周的周数差，可为负
func (r *Resolver) WeekOffset(date time.Time) (int, error) {
	if date.IsZero() {
		return 0, ErrInvalidDate
	}
	days := int(WeekStart(date).Sub(r.referenceMonday).Hours()) / 24
	return floorDiv(days, 7), nil
}

// ComputeWeekParity 计算 date 所在周的单双周
func (r *Resolver) ComputeWeekParity(date time.Time) (Parity, error) {
	weeks, err := r.WeekOffset(date)
	if err != nil {
		return "", err
	}
	if weeks%2 == 0 {
		return ParityOdd, nil
	}
	return ParityEven, nil
}

// DefaultStatus 根据上课方式与单双周推导默认状态
func DefaultStatus(mode Mode, parity Parity) Status {
	switch mode {
	case ModeOnlineAlways:
		return StatusOnline
	case ModeOnsiteAlways:
		return StatusOnsite
	case ModeOddOnsite:
		if parity == ParityOdd {
			return StatusOnsite
		}
		return StatusOnline
	case ModeEvenOnsite:
		if parity == ParityEven {
			return StatusOnsite
		}
		return StatusOnline
	}
	return StatusUnknown
}

// ResolveStatus 解析课程在 date 的状态：覆盖优先，否则按单双周推导
func (r *Resolver) ResolveStatus(course Course, date time.Time, overrides Overrides) (Resolution, error) {
	if err := course.validateShape(); err != nil {
		return Resolution{}, err
	}
	key, err := KeyFor(course.ID, date)
	if err != nil {
		return Resolution{}, err
	}
	if forced, ok := overrides[key]; ok {
		return Resolution{Status: forced, IsOverridden: true}, nil
	}

	parity, err := r.ComputeWeekParity(date)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Status: DefaultStatus(course.Mode, parity)}, nil
}

// ToggleOverride 翻转课程在 date 所在周的状态，返回新的覆盖集合（不修改入参）。
// 翻转后与默认状态一致时删除覆盖键，保证集合中不存在冗余覆盖。
func (r *Resolver) ToggleOverride(course Course, date time.Time, overrides Overrides) (Overrides, error) {
	current, err := r.ResolveStatus(course, date, overrides)
	if err != nil {
		return nil, err
	}
	next, err := current.Status.Opposite()
	if err != nil {
		return nil, err
	}
	def, err := r.ResolveStatus(course, date, nil)
	if err != nil {
		return nil, err
	}

	key, _ := KeyFor(course.ID, date)
	out := overrides.Clone()
	if next == def.Status {
		delete(out, key)
	} else {
		out[key] = next
	}
	return out, nil
}
