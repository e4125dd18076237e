package dto

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var localTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// LocalTime 兼容后端不带时区的时间（按本地时区解析）和 RFC3339
type LocalTime struct {
	time.Time
}

func (t *LocalTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	// 数组形式 [yyyy, MM, dd, HH, mm, ss, nanos]
	if len(b) > 0 && b[0] == '[' {
		var parts []int
		if err := json.Unmarshal(b, &parts); err != nil {
			return err
		}
		if len(parts) < 3 {
			return nil
		}
		for len(parts) < 7 {
			parts = append(parts, 0)
		}
		t.Time = time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], parts[6], time.Local)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parsed, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04:05.999999999"))
}

// ParseLocalTime 依次尝试支持的时间格式
func ParseLocalTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range localTimeLayouts {
		parsed, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
