package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/Chacatphol/FlowO/internal/schedule"
)

func buildICS(events ...[]string) string {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//flowo//test//EN"}
	for _, e := range events {
		lines = append(lines, "BEGIN:VEVENT")
		lines = append(lines, e...)
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n") + "\r\n"
}

// 时间均为 UTC，课表时区 +07:00：02:00Z 即当地 09:00
var sampleICS = buildICS(
	[]string{ // 仍在进行的每周课程
		"UID:a@test", "SUMMARY:Calculus", "LOCATION:A-101",
		"DTSTART:20251103T020000Z", "DTEND:20251103T050000Z",
		"RRULE:FREQ=WEEKLY;UNTIL=20260228T000000Z",
	},
	[]string{ // 已结束
		"UID:b@test", "SUMMARY:Old Course",
		"DTSTART:20250901T060000Z", "DTEND:20250901T080000Z",
		"RRULE:FREQ=WEEKLY;COUNT=4",
	},
	[]string{ // 单次事件
		"UID:c@test", "SUMMARY:Midterm",
		"DTSTART:20251215T020000Z", "DTEND:20251215T040000Z",
	},
	[]string{ // 与第一个事件重复
		"UID:d@test", "SUMMARY:Calculus",
		"DTSTART:20251110T020000Z", "DTEND:20251110T050000Z",
		"RRULE:FREQ=WEEKLY;INTERVAL=2",
	},
	[]string{ // 非每周重复
		"UID:e@test", "SUMMARY:Gym",
		"DTSTART:20251103T230000Z", "DTEND:20251104T000000Z",
		"RRULE:FREQ=DAILY",
	},
	[]string{ // 使用 DURATION
		"UID:f@test", "SUMMARY:Seminar", "LOCATION:Hall",
		"DTSTART:20251105T070000Z", "DURATION:PT1H30M",
		"RRULE:FREQ=WEEKLY",
	},
	[]string{ // 剩余唯一一次被 EXDATE 排除
		"UID:g@test", "SUMMARY:Workshop",
		"DTSTART:20251119T010000Z", "DTEND:20251119T020000Z",
		"RRULE:FREQ=WEEKLY;COUNT=4",
		"EXDATE:20251210T010000Z",
	},
)

func TestParseICS_ActiveWeeklyOnly(t *testing.T) {
	now := defaultNow()
	events, err := ParseICS(strings.NewReader(sampleICS), now, bangkok)
	if err != nil {
		t.Fatalf("ParseICS 应成功: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("期望 2 门课程，实际 %d: %+v", len(events), events)
	}

	calc := events[0]
	if calc.Name != "Calculus" || calc.DayOfWeek != 1 || calc.StartTime != "09:00" || calc.EndTime != "12:00" || calc.Room != "A-101" {
		t.Errorf("Calculus 解析错误: %+v", calc)
	}
	sem := events[1]
	if sem.Name != "Seminar" || sem.DayOfWeek != 3 || sem.StartTime != "14:00" || sem.EndTime != "15:30" {
		t.Errorf("Seminar 解析错误: %+v", sem)
	}
}

func TestParseICS_InvalidContent(t *testing.T) {
	_, err := ParseICS(strings.NewReader("this is not a calendar"), defaultNow(), bangkok)
	if err == nil {
		t.Error("非法内容应返回错误")
	}
}

func TestParseICSDuration(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Duration
		wantOK bool
	}{
		{"PT1H30M", 90 * time.Minute, true},
		{"PT45M", 45 * time.Minute, true},
		{"P1D", 24 * time.Hour, true},
		{"P1W", 7 * 24 * time.Hour, true},
		{"P1DT2H", 26 * time.Hour, true},
		{"+PT10S", 10 * time.Second, true},
		{"PT", 0, false},
		{"1H", 0, false},
		{"PT5X", 0, false},
		{"P2M", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseICSDuration(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("期望 %v/%v，实际 %v/%v", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}

func TestGoWeekdayToISO(t *testing.T) {
	if goWeekdayToISO(time.Sunday) != 7 || goWeekdayToISO(time.Monday) != 1 || goWeekdayToISO(time.Saturday) != 6 {
		t.Error("ISO 星期转换错误")
	}
}

func TestFetchICSContent_RejectsUnsupportedScheme(t *testing.T) {
	if _, err := FetchICSContent(context.Background(), "ftp://example.com/cal.ics"); err == nil {
		t.Error("不支持的协议应返回错误")
	}
}

func TestIsPublicIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"8.8.8.8", true},
		{"2001:4860:4860::8888", true},
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"fe80::1", false},
		{"fd00::1", false},
		{"0.0.0.0", false},
		{"100.64.0.1", false},
		{"::ffff:127.0.0.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := isPublicIP(net.ParseIP(tt.ip)); got != tt.want {
				t.Errorf("期望 %v，实际 %v", tt.want, got)
			}
		})
	}
}

func TestFetchICSContent_RejectsLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "INTERNAL-SECRET")
	}))
	defer srv.Close()

	body, err := FetchICSContent(context.Background(), srv.URL+"/admin")
	if err == nil {
		body.Close()
		t.Fatal("回环地址应被拒绝")
	}
	if !errors.Is(err, ErrICSAddressBlocked) {
		t.Errorf("期望 ErrICSAddressBlocked，实际: %v", err)
	}
}

func TestFetchICS_RedirectTargetChecked(t *testing.T) {
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "INTERNAL-SECRET")
	}))
	defer internal.Close()
	entry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, internal.URL+"/admin", http.StatusFound)
	}))
	defer entry.Close()

	// 只放行入口服务器，模拟公网地址重定向到内网
	entryAddr := strings.TrimPrefix(entry.URL, "http://")
	client := newICSClient(func(network, address string, c syscall.RawConn) error {
		if address == entryAddr {
			return nil
		}
		return publicOnly(network, address, c)
	})

	body, err := fetchICS(context.Background(), client, entry.URL)
	if err == nil {
		b, _ := io.ReadAll(body)
		body.Close()
		t.Fatalf("重定向到内网应被拒绝，实际读到 %q", b)
	}
	if !errors.Is(err, ErrICSAddressBlocked) {
		t.Errorf("期望 ErrICSAddressBlocked，实际: %v", err)
	}
}

func TestFetchICS_AllowedTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sampleICS)
	}))
	defer srv.Close()

	client := newICSClient(func(_, _ string, _ syscall.RawConn) error { return nil })
	body, err := fetchICS(context.Background(), client, srv.URL)
	if err != nil {
		t.Fatalf("放行的地址应可获取: %v", err)
	}
	defer body.Close()
	b, _ := io.ReadAll(body)
	if !strings.Contains(string(b), "BEGIN:VCALENDAR") {
		t.Errorf("响应内容不符: %q", b)
	}
}

// ── TimetableService ──

func TestTimetableService_ImportICS(t *testing.T) {
	env := newTestEnv(defaultNow())
	u := seedUser(t, env, "alice")
	svc := NewTimetableService(env.repo, env.clock, env.share, env.logger)
	ctx := context.Background()

	resp, err := svc.ImportICS(ctx, strings.NewReader(sampleICS), u.UserID)
	if err != nil {
		t.Fatalf("ImportICS 应成功: %v", err)
	}
	if resp.ImportedCount != 2 || resp.SkippedCount != 0 {
		t.Errorf("期望导入 2 门，实际 %+v", resp)
	}

	courses, _ := env.repo.Course.ListByUser(ctx, u.UserID)
	for _, c := range courses {
		if c.ScheduleType != string(schedule.ModeOnsiteAlways) || c.Version != 1 {
			t.Errorf("导入课程应为 onsite-always 且 version=1: %+v", c)
		}
	}

	again, err := svc.ImportICS(ctx, strings.NewReader(sampleICS), u.UserID)
	if err != nil {
		t.Fatalf("重复导入应成功: %v", err)
	}
	if again.ImportedCount != 0 || again.SkippedCount != 2 {
		t.Errorf("重复导入应全部跳过: %+v", again)
	}
}

func TestTimetableService_ImportICS_Errors(t *testing.T) {
	env := newTestEnv(defaultNow())
	u := seedUser(t, env, "alice")
	svc := NewTimetableService(env.repo, env.clock, env.share, env.logger)
	ctx := context.Background()

	if _, err := svc.ImportICS(ctx, strings.NewReader("garbage"), u.UserID); !errors.Is(err, ErrTimetableICSParseFailed) {
		t.Errorf("期望 ErrTimetableICSParseFailed，实际: %v", err)
	}

	onlyPast := buildICS([]string{
		"UID:b@test", "SUMMARY:Old Course",
		"DTSTART:20250901T060000Z", "DTEND:20250901T080000Z",
		"RRULE:FREQ=WEEKLY;COUNT=4",
	})
	if _, err := svc.ImportICS(ctx, strings.NewReader(onlyPast), u.UserID); !errors.Is(err, ErrTimetableICSEmpty) {
		t.Errorf("期望 ErrTimetableICSEmpty，实际: %v", err)
	}
}

func TestTimetableService_ImportICSFromURL_BlocksInternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sampleICS)
	}))
	defer srv.Close()

	env := newTestEnv(defaultNow())
	u := seedUser(t, env, "alice")
	svc := NewTimetableService(env.repo, env.clock, env.share, env.logger)

	_, err := svc.ImportICSFromURL(context.Background(), srv.URL, u.UserID)
	if !errors.Is(err, ErrTimetableICSURLBlocked) {
		t.Errorf("期望 ErrTimetableICSURLBlocked，实际: %v", err)
	}
	if len(env.store.courses.courses) != 0 {
		t.Error("被拒绝的地址不应导入课程")
	}
}
