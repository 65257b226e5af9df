package worker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// ProgressMessage is one progress event from a running platform agent.
type ProgressMessage struct {
	Platform  string `json:"platform"`
	Type      string `json:"type"` // info, warning, error, progress, success
	Message   string `json:"message"`
	Current   *int   `json:"current,omitempty"`
	Total     *int   `json:"total,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// ProgressFunc receives progress events. A nil func drops them.
type ProgressFunc func(msg ProgressMessage)

// PlatformAgent is one automated platform in a session.
type PlatformAgent interface {
	Name() string
	Enabled() bool
	Run(ctx context.Context, progress ProgressFunc) (*Result, error)
}

// Result summarizes one platform's run.
type Result struct {
	Platform              string   `json:"platform"`
	JobsFound             int      `json:"jobs_found"`
	JobsMatched           int      `json:"jobs_matched"`
	ApplicationsSubmitted int      `json:"applications_submitted"`
	LeadsRecorded         int      `json:"leads_recorded,omitempty"`
	Errors                []string `json:"errors"`
}

func Message(platform, typ, text string) ProgressMessage {
	return ProgressMessage{
		Platform:  platform,
		Type:      typ,
		Message:   text,
		Timestamp: time.Now().UnixMilli(),
	}
}

func Counted(platform, text string, current, total int) ProgressMessage {
	msg := Message(platform, "progress", text)
	msg.Current = &current
	msg.Total = &total
	return msg
}

// Emit forwards msg when the callback is set.
func Emit(progress ProgressFunc, msg ProgressMessage) {
	if progress != nil {
		progress(msg)
	}
}

// LogProgress is a ProgressFunc that routes events to the logger.
func LogProgress(msg ProgressMessage) {
	line := "[" + msg.Platform + "] " + msg.Message
	switch msg.Type {
	case "error":
		log.Error(line)
	case "warning":
		log.Warn(line)
	default:
		log.Info(line)
	}
}
