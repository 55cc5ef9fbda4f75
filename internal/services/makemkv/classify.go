package makemkv

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"discrip/internal/logging"
)

// EventKind classifies one line of makemkvcon output.
type EventKind int

const (
	EventRaw EventKind = iota
	EventOperation
	EventAction
	EventProgress
	EventMessage
	EventTitleFailed
	EventSummary
	EventDiscOpenFailed
	EventFatal
	EventData
)

func (k EventKind) String() string {
	switch k {
	case EventRaw:
		return "raw"
	case EventOperation:
		return "operation"
	case EventAction:
		return "action"
	case EventProgress:
		return "progress"
	case EventMessage:
		return "message"
	case EventTitleFailed:
		return "title_failed"
	case EventSummary:
		return "summary"
	case EventDiscOpenFailed:
		return "disc_open_failed"
	case EventFatal:
		return "fatal"
	case EventData:
		return "data"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Event is the classification of one output line.
type Event struct {
	Kind       EventKind
	Line       string
	Code       int
	Text       string
	Percent    float64
	TitleIndex int
	TitlePath  string
	Saved      int
	Failed     int
	Err        error
}

// Display returns the human-readable progress line for the event, if any.
func (e Event) Display() (string, bool) {
	switch e.Kind {
	case EventOperation:
		return "Current operation: " + e.Text, e.Text != ""
	case EventAction:
		return "Current action: " + e.Text, e.Text != ""
	case EventMessage, EventTitleFailed, EventSummary, EventDiscOpenFailed, EventFatal:
		return e.Text, e.Text != ""
	case EventRaw:
		if strings.TrimSpace(e.Line) == "" {
			return "", false
		}
		return e.Line, true
	default:
		return "", false
	}
}

// TitleFailure records a title MakeMKV reported as not saved.
type TitleFailure struct {
	Index int
	Path  string
	Text  string
}

// Summary is the accumulated outcome of a classified stream.
type Summary struct {
	Operation      string
	SummarySeen    bool
	Saved          int
	Failed         int
	DiscOpenFailed bool
	ReadErrors     int
	TitleFailures  []TitleFailure
	Fatal          error
}

// AnyFailed reports whether at least one title failed.
func (s Summary) AnyFailed() bool {
	return s.Failed > 0 || len(s.TitleFailures) > 0
}

var (
	titlesSummaryPattern = regexp.MustCompile(`(?i)(\d+)\s+titles?\s+saved,\s*(\d+)\s+failed`)
	oneOrMorePattern     = regexp.MustCompile(`(?i)one or more titles failed`)
	discOpenPattern      = regexp.MustCompile(`(?i)failed to open disc`)
)

// Classifier is a small state machine over makemkvcon output. It is fed one
// line at a time and accumulates a Summary. Not safe for concurrent use.
type Classifier struct {
	logger  *slog.Logger
	summary Summary
}

// NewClassifier builds a Classifier that logs notable messages to logger.
func NewClassifier(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logging.NewComponentLogger(logger, "makemkv")}
}

// Summary returns a snapshot of the accumulated outcome.
func (c *Classifier) Summary() Summary {
	s := c.summary
	s.TitleFailures = append([]TitleFailure(nil), c.summary.TitleFailures...)
	return s
}

// Classify consumes one line and returns its classification.
func (c *Classifier) Classify(line string) Event {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case strings.HasPrefix(line, "MSG:"):
		return c.handleMSG(line)
	case strings.HasPrefix(line, "PRGT:"), strings.HasPrefix(line, "PRGC:"):
		return c.handleProgressTitle(line)
	case strings.HasPrefix(line, "PRGV:"):
		ev := Event{Kind: EventProgress, Line: line}
		if update, ok := ParseProgress(line); ok {
			ev.Percent = update.Percent
		}
		return ev
	case strings.HasPrefix(line, "CINFO:"), strings.HasPrefix(line, "TINFO:"),
		strings.HasPrefix(line, "SINFO:"), strings.HasPrefix(line, "TCOUNT:"),
		strings.HasPrefix(line, "DRV:"):
		return Event{Kind: EventData, Line: line}
	default:
		return c.handleRaw(line)
	}
}

func (c *Classifier) handleProgressTitle(line string) Event {
	prefix := line[:5]
	fields, ok := splitRobotFields(line, prefix)
	ev := Event{Kind: EventAction, Line: line}
	if prefix == "PRGT:" {
		ev.Kind = EventOperation
	}
	if ok && len(fields) >= 3 {
		ev.Code, _ = strconv.Atoi(fields[0])
		ev.Text = fields[2]
	}
	if ev.Kind == EventOperation && ev.Text != "" {
		c.summary.Operation = ev.Text
	}
	return ev
}

func (c *Classifier) handleMSG(line string) Event {
	msg, ok := ParseMSG(line)
	if !ok {
		return c.handleRaw(line)
	}
	ev := Event{Kind: EventMessage, Line: line, Code: msg.Code, Text: msg.Text, TitleIndex: -1}

	switch msg.Code {
	case MsgReadError:
		c.handleReadError(msg.Text)
	case MsgWriteError:
		if strings.Contains(msg.Text, "No such file") {
			ev.Kind = EventFatal
			ev.Err = &ServiceMsgError{Code: msg.Code, Message: msg.Text, Hint: "check that the output directory exists and is writable"}
			c.setFatal(ev.Err)
		}
		logging.ErrorWithContext(c.logger, "makemkv write error", "makemkv_write_error", logging.String("msg_text", msg.Text))
	case MsgTitleError:
		ev.Kind = EventTitleFailed
		if len(msg.Args) >= 1 {
			if idx, err := strconv.Atoi(strings.TrimSpace(msg.Args[0])); err == nil {
				ev.TitleIndex = idx
			}
		}
		if len(msg.Args) >= 2 {
			ev.TitlePath = msg.Args[len(msg.Args)-1]
		}
		c.summary.TitleFailures = append(c.summary.TitleFailures, TitleFailure{Index: ev.TitleIndex, Path: ev.TitlePath, Text: msg.Text})
		logging.WarnWithContext(c.logger, "makemkv title save failed", "makemkv_title_error",
			logging.String(logging.FieldErrorHint, "one title failed but other titles may succeed"),
			logging.String(logging.FieldImpact, "single title missing from output"),
			logging.Int("title_index", ev.TitleIndex),
			logging.String("msg_text", msg.Text),
		)
	case MsgRipCompleted:
		ev.Kind = EventSummary
		if len(msg.Args) >= 2 {
			ev.Saved, _ = strconv.Atoi(strings.TrimSpace(msg.Args[0]))
			ev.Failed, _ = strconv.Atoi(strings.TrimSpace(msg.Args[1]))
		} else {
			ev.Saved, ev.Failed = parseSummaryText(msg.Text)
		}
		c.recordSummary(ev.Saved, ev.Failed)
	case MsgDiscOpenError:
		ev.Kind = EventDiscOpenFailed
		c.summary.DiscOpenFailed = true
		logging.WarnWithContext(c.logger, "makemkv disc open error", "makemkv_disc_open_error",
			logging.String(logging.FieldErrorHint, "disc may be unreadable or the drive may be empty"),
			logging.String(logging.FieldImpact, "run fails before ripping"),
			logging.String("msg_text", msg.Text),
		)
	case MsgEvalExpiredTooOld, MsgEvalExpiredShareware:
		ev.Kind = EventFatal
		ev.Err = &ServiceMsgError{Code: msg.Code, Message: msg.Text, Hint: "update or register MakeMKV"}
		c.setFatal(ev.Err)
		logging.ErrorWithContext(c.logger, "makemkv license expired", "makemkv_license_expired",
			logging.Int("msg_code", msg.Code),
			logging.String("msg_text", msg.Text),
		)
	case MsgEvalPeriodExpired:
		logging.WarnWithContext(c.logger, "makemkv evaluation period expiring", "makemkv_eval_warning",
			logging.String(logging.FieldErrorHint, "consider purchasing a license"),
			logging.String(logging.FieldImpact, "ripping will stop working when evaluation expires"),
			logging.String("msg_text", msg.Text),
		)
	case MsgBackupFailed:
		logging.ErrorWithContext(c.logger, "makemkv backup failed", "makemkv_backup_failed", logging.String("msg_text", msg.Text))
	default:
		if discOpenPattern.MatchString(msg.Text) {
			ev.Kind = EventDiscOpenFailed
			c.summary.DiscOpenFailed = true
			break
		}
		c.logger.Debug("makemkv message", logging.Int("msg_code", msg.Code), logging.String("msg_text", msg.Text))
	}
	return ev
}

func (c *Classifier) handleRaw(line string) Event {
	ev := Event{Kind: EventRaw, Line: line, Text: strings.TrimSpace(line), TitleIndex: -1}
	switch {
	case discOpenPattern.MatchString(line):
		ev.Kind = EventDiscOpenFailed
		c.summary.DiscOpenFailed = true
	case oneOrMorePattern.MatchString(line):
		ev.Kind = EventSummary
		ev.Failed = 1
		if c.summary.Failed == 0 {
			c.summary.Failed = 1
		}
	default:
		if saved, failed := parseSummaryText(line); saved > 0 || failed > 0 {
			ev.Kind = EventSummary
			ev.Saved, ev.Failed = saved, failed
			c.recordSummary(saved, failed)
		}
	}
	return ev
}

func (c *Classifier) handleReadError(text string) {
	c.summary.ReadErrors++
	upper := strings.ToUpper(text)
	classification := "read_error"
	switch {
	case strings.Contains(upper, "TRAY OPEN"):
		classification = "tray_open"
	case strings.Contains(upper, "L-EC UNCORRECTABLE"):
		classification = "uncorrectable_read"
	case strings.Contains(upper, "HARDWARE ERROR"):
		classification = "hardware_error"
	}
	logging.WarnWithContext(c.logger, "makemkv read error", "makemkv_read_error",
		logging.String(logging.FieldErrorHint, "disc may have physical damage or drive issue"),
		logging.String(logging.FieldImpact, "rip may produce corrupted or incomplete output"),
		logging.String("classification", classification),
		logging.Int("read_error_count", c.summary.ReadErrors),
		logging.String("msg_text", text),
	)
}

func (c *Classifier) recordSummary(saved, failed int) {
	c.summary.SummarySeen = true
	c.summary.Saved = saved
	c.summary.Failed = failed
	c.logger.Info("makemkv rip result",
		logging.String(logging.FieldEventType, "makemkv_rip_result"),
		logging.Int("titles_saved", saved),
		logging.Int("titles_failed", failed),
	)
}

func (c *Classifier) setFatal(err error) {
	if c.summary.Fatal == nil {
		c.summary.Fatal = err
	}
}

func parseSummaryText(text string) (saved, failed int) {
	m := titlesSummaryPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0
	}
	saved, _ = strconv.Atoi(m[1])
	failed, _ = strconv.Atoi(m[2])
	return saved, failed
}
