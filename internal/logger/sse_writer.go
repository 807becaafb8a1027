package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog"
)

const defaultTimeFormat = time.Kitchen

// SSEPublisher is the part of sse.Server the writer needs.
type SSEPublisher interface {
	Publish(topic string, event *sse.Event)
}

// Formatter renders one decoded log event part to text.
type Formatter func(interface{}) string

// LogMessage is the JSON payload published on the "logs" SSE stream.
type LogMessage struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (m LogMessage) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// SSEWriter is an io.Writer that decodes zerolog JSON events and republishes
// them, console-formatted, to an SSE stream.
type SSEWriter struct {
	SSE        SSEPublisher
	TimeFormat string
	PartsOrder []string
}

func defaultPartsOrder() []string {
	return []string{
		zerolog.TimestampFieldName,
		zerolog.LevelFieldName,
		zerolog.CallerFieldName,
		zerolog.MessageFieldName,
	}
}

func NewSSEWriter(srv SSEPublisher, options ...func(w *SSEWriter)) *SSEWriter {
	w := &SSEWriter{
		SSE:        srv,
		TimeFormat: defaultTimeFormat,
		PartsOrder: defaultPartsOrder(),
	}

	for _, opt := range options {
		opt(w)
	}

	return w
}

func (w *SSEWriter) Write(p []byte) (int, error) {
	if w.SSE == nil {
		return 0, nil
	}

	var evt map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(p))
	d.UseNumber()
	if err := d.Decode(&evt); err != nil {
		return 0, fmt.Errorf("cannot decode log event: %s", err)
	}

	var buf bytes.Buffer
	for _, part := range w.PartsOrder {
		// timestamp and level travel in their own LogMessage fields
		if part == zerolog.TimestampFieldName || part == zerolog.LevelFieldName {
			continue
		}
		w.writePart(&buf, evt, part)
	}
	w.writeFields(&buf, evt)

	msg := LogMessage{
		Time:    defaultFormatTimestamp(w.TimeFormat)(evt[zerolog.TimestampFieldName]),
		Level:   defaultFormatLevel()(evt[zerolog.LevelFieldName]),
		Message: strings.TrimSpace(buf.String()),
	}

	data, err := msg.Bytes()
	if err != nil {
		return 0, err
	}

	w.SSE.Publish("logs", &sse.Event{Data: data})

	return len(p), nil
}

// writePart appends one formatted event part followed by a space.
func (w *SSEWriter) writePart(buf *bytes.Buffer, evt map[string]interface{}, part string) {
	var f Formatter

	switch part {
	case zerolog.LevelFieldName:
		f = defaultFormatLevel()
	case zerolog.TimestampFieldName:
		f = defaultFormatTimestamp(w.TimeFormat)
	case zerolog.CallerFieldName:
		f = defaultFormatCaller()
	case zerolog.MessageFieldName:
		f = defaultFormatMessage
	default:
		f = defaultFormatFieldValue
	}

	if s := f(evt[part]); len(s) > 0 {
		buf.WriteString(s)
		buf.WriteByte(' ')
	}
}

// writeFields appends the remaining event fields as name=value pairs, the
// error field first.
func (w *SSEWriter) writeFields(buf *bytes.Buffer, evt map[string]interface{}) {
	var fields = make([]string, 0, len(evt))
	for field := range evt {
		switch field {
		case zerolog.TimestampFieldName, zerolog.LevelFieldName,
			zerolog.CallerFieldName, zerolog.MessageFieldName:
			continue
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	// error goes first
	if i := sort.SearchStrings(fields, zerolog.ErrorFieldName); i < len(fields) && fields[i] == zerolog.ErrorFieldName {
		fields = append(fields[:i], fields[i+1:]...)
		fields = append([]string{zerolog.ErrorFieldName}, fields...)
	}

	for _, field := range fields {
		value := defaultFormatFieldValue(evt[field])
		if needsQuote(value) {
			value = strconv.Quote(value)
		}

		if field == zerolog.ErrorFieldName {
			buf.WriteString(defaultFormatErrFieldName()(field))
			buf.WriteString(defaultFormatErrFieldValue()(value))
		} else {
			buf.WriteString(defaultFormatFieldName()(field))
			buf.WriteString(value)
		}
		buf.WriteByte(' ')
	}
}

// needsQuote reports whether the value must be quoted to stay one token.
func needsQuote(s string) bool {
	for i := range s {
		if s[i] < 0x20 || s[i] > 0x7e || s[i] == ' ' || s[i] == '\\' || s[i] == '"' {
			return true
		}
	}
	return false
}

func defaultFormatTimestamp(timeFormat string) Formatter {
	if timeFormat == "" {
		timeFormat = defaultTimeFormat
	}
	return func(i interface{}) string {
		t := "<nil>"
		switch tt := i.(type) {
		case string:
			ts, err := time.Parse(zerolog.TimeFieldFormat, tt)
			if err != nil {
				t = tt
			} else {
				t = ts.Local().Format(timeFormat)
			}
		case json.Number:
			i, err := tt.Int64()
			if err != nil {
				t = tt.String()
			} else {
				var sec, nsec int64 = i, 0
				switch zerolog.TimeFieldFormat {
				case zerolog.TimeFormatUnixMs:
					nsec = int64(time.Duration(i) * time.Millisecond)
					sec = 0
				case zerolog.TimeFormatUnixMicro:
					nsec = int64(time.Duration(i) * time.Microsecond)
					sec = 0
				}
				ts := time.Unix(sec, nsec)
				t = ts.Local().Format(timeFormat)
			}
		}
		return t
	}
}

func defaultFormatLevel() Formatter {
	return func(i interface{}) string {
		var l string
		if ll, ok := i.(string); ok {
			switch ll {
			case zerolog.LevelTraceValue:
				l = "TRC"
			case zerolog.LevelDebugValue:
				l = "DBG"
			case zerolog.LevelInfoValue:
				l = "INF"
			case zerolog.LevelWarnValue:
				l = "WRN"
			case zerolog.LevelErrorValue:
				l = "ERR"
			case zerolog.LevelFatalValue:
				l = "FTL"
			case zerolog.LevelPanicValue:
				l = "PNC"
			default:
				l = ll
			}
		} else {
			if i == nil {
				l = "???"
			} else {
				l = strings.ToUpper(fmt.Sprintf("%s", i))[0:3]
			}
		}
		return l
	}
}

func defaultFormatCaller() Formatter {
	return func(i interface{}) string {
		var c string
		if cc, ok := i.(string); ok {
			c = cc
		}
		if len(c) > 0 {
			if cwd, err := os.Getwd(); err == nil {
				if rel, err := filepath.Rel(cwd, c); err == nil {
					c = rel
				}
			}
			c = c + " >"
		}
		return c
	}
}

func defaultFormatMessage(i interface{}) string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("%s", i)
}

func defaultFormatFieldName() Formatter {
	return func(i interface{}) string {
		return fmt.Sprintf("%s=", i)
	}
}

func defaultFormatFieldValue(i interface{}) string {
	return fmt.Sprintf("%v", i)
}

func defaultFormatErrFieldName() Formatter {
	return func(i interface{}) string {
		return fmt.Sprintf("%s=", i)
	}
}

func defaultFormatErrFieldValue() Formatter {
	return func(i interface{}) string {
		return fmt.Sprintf("%s=", i)
	}
}
