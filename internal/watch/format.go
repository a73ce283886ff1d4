package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mysettle/mysettle/pkg/ledger"
)

// OutputFormat selects how Stream prints events.
type OutputFormat string

const (
	// OutputFormatDefault is human-readable output with timestamps and emojis
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON is line-delimited JSON
	OutputFormatJSON OutputFormat = "json"
)

type formatter interface {
	FormatEvent(ev *ledger.Event) error
}

func newFormatter(format OutputFormat, w io.Writer) (formatter, error) {
	switch format {
	case OutputFormatDefault, "":
		return &defaultFormatter{writer: w}, nil
	case OutputFormatJSON:
		return &jsonFormatter{writer: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

type defaultFormatter struct {
	writer io.Writer
}

func (f *defaultFormatter) FormatEvent(ev *ledger.Event) error {
	ts := time.UnixMilli(ev.TimestampMs).Format("15:04:05")
	_, err := fmt.Fprintf(f.writer, "[%s] %s\n", ts, describe(ev))
	return err
}

// describe renders one event as a short status line.
func describe(ev *ledger.Event) string {
	str := func(key string) string {
		if v, ok := ev.Data[key]; ok {
			return fmt.Sprint(v)
		}
		return ""
	}

	switch ev.Type {
	case ledger.EventHandshakeComplete:
		return "🤝 Driver joined: driver_b=" + str("driver_b")
	case ledger.EventReportSubmitted:
		return "📝 Report submitted: by=" + str("user_id")
	case ledger.EventAllReportsSubmitted:
		return "📨 Both reports submitted, waiting for police review"
	case ledger.EventMeetingStarted:
		return "📹 Meeting started: " + str("link")
	case ledger.EventPoliceSigned:
		return "👮 Police signed: officer=" + str("police_id")
	case ledger.EventUserSigned:
		return "✍️  Driver signed: by=" + str("user_id")
	case ledger.EventCaseClosed:
		return "🎉 Case closed: report=" + str("final_report")
	default:
		return fmt.Sprintf("• %s %s", ev.Type, formatData(ev.Data))
	}
}

// formatData prints a data map as sorted key=value pairs.
func formatData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return strings.Join(parts, ", ")
}

type jsonFormatter struct {
	writer io.Writer
}

func (f *jsonFormatter) FormatEvent(ev *ledger.Event) error {
	return json.NewEncoder(f.writer).Encode(ev)
}
