package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将标准 iCalendar (RFC 5545) 内容解析为每周固定上课的课程。
//
// 规则：
//   - DTSTART/DTEND（或 DURATION）确定星期几与时间
//   - 仅保留 FREQ=WEEKLY 且在导入时刻之后仍有下一次上课的事件（应用 EXDATE）
//   - 合并同 name+day+time 的事件（ICS 可能以多个 VEVENT 表示同一课程）
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
)

// parsedCourseEvent ICS 解析中间结构
type parsedCourseEvent struct {
	Name      string
	Room      string
	DayOfWeek int // 1=Monday … 7=Sunday
	StartTime string
	EndTime   string
}

// ErrICSAddressBlocked ICS 地址解析到内网、回环或链路本地地址
var ErrICSAddressBlocked = errors.New("ICS 地址不允许指向内部网络")

// cgnatBlock 运营商级 NAT 地址段（100.64.0.0/10）
var cgnatBlock = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// isPublicIP 仅允许公网单播地址
func isPublicIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() || cgnatBlock.Contains(ip))
}

// publicOnly 拨号前校验解析后的目标地址，重定向后的每次连接同样经过校验
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if !isPublicIP(net.ParseIP(host)) {
		return fmt.Errorf("%w: %s", ErrICSAddressBlocked, host)
	}
	return nil
}

// newICSClient 构造拉取 ICS 的 HTTP 客户端；不走代理，保证 control 校验的是真实目标
func newICSClient(control func(network, address string, c syscall.RawConn) error) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: control}
	return &http.Client{
		Timeout: icsFetchTimeout,
		Transport: &http.Transport{
			Proxy:                 nil,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("ICS 重定向次数过多")
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return fmt.Errorf("不支持的 ICS 重定向地址: %s", req.URL)
			}
			return nil
		},
	}
}

var icsClient = newICSClient(publicOnly)

// FetchICSContent 从 URL 获取 ICS 内容，仅允许访问公网地址
func FetchICSContent(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return fetchICS(ctx, icsClient, rawURL)
}

func fetchICS(ctx context.Context, client *http.Client, rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}
	if !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
		return nil, fmt.Errorf("不支持的 ICS 地址: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("构造 ICS 请求失败: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小，防止恶意 URL 返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseICS 解析 ICS 内容，返回 now 之后仍在进行的每周课程（已合并）
func ParseICS(reader io.Reader, now time.Time, loc *time.Location) ([]parsedCourseEvent, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	var events []parsedCourseEvent
	for _, comp := range cal.Events() {
		evt, ok := parseVEvent(comp, now, loc)
		if !ok {
			continue
		}
		events = append(events, evt)
	}

	return mergeEvents(events), nil
}

// parseVEvent 解析单个 VEVENT 组件
func parseVEvent(evt *ics.VEvent, now time.Time, loc *time.Location) (parsedCourseEvent, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return parsedCourseEvent{}, false
	}
	name := strings.TrimSpace(summary.Value)

	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return parsedCourseEvent{}, false
	}
	dtEnd, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil {
		durProp := evt.GetProperty(ics.ComponentPropertyDuration)
		if durProp == nil {
			return parsedCourseEvent{}, false
		}
		d, ok := parseICSDuration(durProp.Value)
		if !ok {
			return parsedCourseEvent{}, false
		}
		dtEnd = dtStart.Add(d)
	}

	if !isActiveWeekly(evt, dtStart, now, loc) {
		return parsedCourseEvent{}, false
	}

	room := ""
	if p := evt.GetProperty(ics.ComponentPropertyLocation); p != nil {
		room = strings.TrimSpace(p.Value)
	}

	return parsedCourseEvent{
		Name:      name,
		Room:      room,
		DayOfWeek: goWeekdayToISO(dtStart.Weekday()),
		StartTime: dtStart.Format("15:04"),
		EndTime:   dtEnd.Format("15:04"),
	}, true
}

// isActiveWeekly RRULE 为每周重复，且扣除 EXDATE 后在 now 之后仍有一次上课
func isActiveWeekly(evt *ics.VEvent, dtStart, now time.Time, loc *time.Location) bool {
	rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		return false
	}

	r, err := rrule.StrToRRule(rruleProp.Value)
	if err != nil || r.OrigOptions.Freq != rrule.WEEKLY {
		return false
	}
	r.DTStart(dtStart)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range parseExDates(evt, loc) {
		set.ExDate(ex.In(dtStart.Location()))
	}

	return !set.After(now.In(dtStart.Location()), true).IsZero()
}

// parseExDates 解析事件中所有 EXDATE（单个属性可含逗号分隔的多个值）
func parseExDates(evt *ics.VEvent, loc *time.Location) []time.Time {
	var out []time.Time
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		exLoc := loc
		if tz := tzidParam(prop.ICalParameters); tz != "" {
			if l, err := time.LoadLocation(tz); err == nil {
				exLoc = l
			}
		}
		for _, v := range strings.Split(prop.Value, ",") {
			if t, ok := parseICSValue(strings.TrimSpace(v), exLoc); ok {
				out = append(out, t)
			}
		}
	}
	return out
}

// mergeEvents 合并相同课程（name+day+startTime+endTime），保留首次出现的地点
func mergeEvents(events []parsedCourseEvent) []parsedCourseEvent {
	type key struct {
		Name      string
		DayOfWeek int
		StartTime string
		EndTime   string
	}
	merged := make(map[key]*parsedCourseEvent)
	order := []key{}

	for _, e := range events {
		k := key{Name: e.Name, DayOfWeek: e.DayOfWeek, StartTime: e.StartTime, EndTime: e.EndTime}
		if existing, ok := merged[k]; ok {
			if existing.Room == "" {
				existing.Room = e.Room
			}
			continue
		}
		cp := e
		merged[k] = &cp
		order = append(order, k)
	}

	result := make([]parsedCourseEvent, 0, len(merged))
	for _, k := range order {
		result = append(result, *merged[k])
	}
	return result
}

// ── 辅助函数 ──

// goWeekdayToISO 将 Go 的 time.Weekday (0=Sunday) 转为 ISO 8601 (1=Monday … 7=Sunday)
func goWeekdayToISO(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性，结果统一转换到 loc
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}

	valLoc := loc
	if tz := tzidParam(prop.ICalParameters); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			valLoc = l
		}
	}

	t, ok := parseICSValue(prop.Value, valLoc)
	if !ok {
		return time.Time{}, fmt.Errorf("无法解析日期: %s", prop.Value)
	}
	return t.In(loc), nil
}

// parseICSValue 尝试多种 ICS 日期格式；无 Z 后缀的值按 loc 解释
func parseICSValue(val string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t, true
	}
	for _, layout := range []string{"20060102T150405", "20060102"} {
		if t, err := time.ParseInLocation(layout, val, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func tzidParam(params map[string][]string) string {
	for k, v := range params {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// parseICSDuration 解析 RFC 5545 DURATION 中的 PnW / PnDTnHnMnS 形式
func parseICSDuration(val string) (time.Duration, bool) {
	s := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(val)), "+")
	if !strings.HasPrefix(s, "P") {
		return 0, false
	}
	s = s[1:]

	var total time.Duration
	inTime := false
	num := ""
	for _, ch := range s {
		switch {
		case ch >= '0' && ch <= '9':
			num += string(ch)
			continue
		case ch == 'T':
			inTime = true
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return 0, false
		}
		num = ""
		switch {
		case ch == 'W' && !inTime:
			total += time.Duration(n) * 7 * 24 * time.Hour
		case ch == 'D' && !inTime:
			total += time.Duration(n) * 24 * time.Hour
		case ch == 'H' && inTime:
			total += time.Duration(n) * time.Hour
		case ch == 'M' && inTime:
			total += time.Duration(n) * time.Minute
		case ch == 'S' && inTime:
			total += time.Duration(n) * time.Second
		default:
			return 0, false
		}
	}
	if num != "" || total <= 0 {
		return 0, false
	}
	return total, true
}
