package makemkv

import (
	"strconv"
	"strings"
)

// MakeMKV MSG codes. These are emitted as MSG:code,... lines on stdout
// in --robot mode. Codes >= 5000 are disc/rip-level messages; codes < 5000
// are general informational or I/O-level messages.
const (
	MsgReadError            = 2003 // Read error (classify by text)
	MsgWriteError           = 2019 // Write error (fatal if "No such file")
	MsgTitleError           = 5003 // Single title save failed
	MsgRipCompleted         = 5004 // "N titles saved, M failed"
	MsgTitleSaved           = 5005 // Title saved (older builds)
	MsgDiscOpenError        = 5010 // Can't open disc
	MsgEvalExpiredTooOld    = 5021 // License/app too old (fatal)
	MsgRipSummary           = 5037 // Copy complete summary
	MsgEvalPeriodExpired    = 5052 // Eval period warning
	MsgEvalExpiredShareware = 5055 // Shareware expired (fatal)
	MsgBackupFailed         = 5080 // Backup mode failed
)

// MSG is one parsed robot-mode message line:
// MSG:code,flags,count,"message","format","arg0","arg1",...
type MSG struct {
	Code   int
	Flags  int
	Text   string
	Format string
	Args   []string
}

// ParseMSG splits a MSG line into its fields. Quoted fields may contain commas.
func ParseMSG(line string) (MSG, bool) {
	fields, ok := splitRobotFields(line, "MSG:")
	if !ok || len(fields) < 1 {
		return MSG{}, false
	}
	code, err := strconv.Atoi(fields[0])
	if err != nil {
		return MSG{}, false
	}
	msg := MSG{Code: code}
	if len(fields) > 1 {
		msg.Flags, _ = strconv.Atoi(fields[1])
	}
	if len(fields) > 3 {
		msg.Text = fields[3]
	}
	if len(fields) > 4 {
		msg.Format = fields[4]
	}
	if len(fields) > 5 {
		msg.Args = fields[5:]
	}
	return msg, true
}

// ParseMSGSprintf extracts the saved and failed counts from a MSG:5004 line.
// For MSG:5004, sprintf[0] = saved count, sprintf[1] = failed count.
func ParseMSGSprintf(line string) (saved, failed int) {
	msg, ok := ParseMSG(line)
	if !ok {
		return 0, 0
	}
	if len(msg.Args) >= 1 {
		saved, _ = strconv.Atoi(strings.TrimSpace(msg.Args[0]))
	}
	if len(msg.Args) >= 2 {
		failed, _ = strconv.Atoi(strings.TrimSpace(msg.Args[1]))
	}
	return saved, failed
}

func parseMSGCode(line string) int {
	msg, ok := ParseMSG(line)
	if !ok {
		return -1
	}
	return msg.Code
}

func parseMSGText(line string) string {
	fields, ok := splitRobotFields(line, "MSG:")
	if !ok || len(fields) < 4 {
		return ""
	}
	return fields[3]
}

// splitRobotFields walks a robot-mode payload respecting quoted strings and
// returns the unquoted fields. ok is false when line lacks prefix or a comma.
func splitRobotFields(line, prefix string) ([]string, bool) {
	if !strings.HasPrefix(line, prefix) {
		return nil, false
	}
	payload := strings.TrimPrefix(line, prefix)
	if !strings.Contains(payload, ",") {
		return nil, false
	}

	var fields []string
	inQuote := false
	start := 0
	for i := 0; i < len(payload); i++ {
		switch payload[i] {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				fields = append(fields, trimMSGField(payload[start:i]))
				start = i + 1
			}
		}
	}
	fields = append(fields, trimMSGField(payload[start:]))
	return fields, true
}

func trimMSGField(field string) string {
	field = strings.TrimSpace(field)
	if len(field) >= 2 && strings.HasPrefix(field, "\"") && strings.HasSuffix(field, "\"") {
		field = field[1 : len(field)-1]
	}
	return strings.ReplaceAll(field, `\"`, `"`)
}

// ServiceMsgError wraps a MakeMKV MSG code into an error with a hint.
type ServiceMsgError struct {
	Code    int
	Message string
	Hint    string
}

func (e *ServiceMsgError) Error() string {
	if e.Hint != "" {
		return e.Message + " (" + e.Hint + ")"
	}
	return e.Message
}
