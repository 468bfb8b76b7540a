package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"
)

// ConversationLogger records chat traffic for later review.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// ConversationLogEvent is one line of a conversation log.
type ConversationLogEvent struct {
	Timestamp  string         `json:"ts"`
	SessionID  string         `json:"session_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

type noopConversationLogger struct{}

func (noopConversationLogger) Log(ConversationLogEvent) {}
func (noopConversationLogger) Close() error             { return nil }

// fileConversationLogger appends events to <dir>/<session>.ndjson and,
// optionally, to one global file. Writes happen on a single goroutine fed by
// a bounded queue; events are dropped rather than blocking a chat request.
type fileConversationLogger struct {
	dir    string
	global *os.File
	logger *slog.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan ConversationLogEvent
	done    chan struct{}
	dropped atomic.Int64
}

// NewConversationLogger returns a logger for cfg. A disabled config yields a
// logger that discards everything.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return noopConversationLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, errors.New("conversation log dir is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &fileConversationLogger{
		dir:    cfg.Dir,
		logger: logger,
		queue:  make(chan ConversationLogEvent, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	if cfg.GlobalEnabled && cfg.GlobalPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0755); err != nil {
			return nil, fmt.Errorf("create global conversation log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.GlobalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open global conversation log: %w", err)
		}
		l.global = f
	}

	go l.run()
	return l, nil
}

func (l *fileConversationLogger) Log(event ConversationLogEvent) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- event:
	default:
		n := l.dropped.Add(1)
		l.logger.Warn("Conversation log queue full, dropping event", "session_id", event.SessionID, "event_type", event.EventType, "dropped", n)
	}
}

func (l *fileConversationLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
	if l.global != nil {
		return l.global.Close()
	}
	return nil
}

func (l *fileConversationLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		line, err := json.Marshal(event)
		if err != nil {
			l.logger.Warn("Failed to encode conversation event", "error", err)
			continue
		}
		line = append(line, '\n')

		path := filepath.Join(l.dir, sessionFileName(event.SessionID)+".ndjson")
		if err := appendLine(path, line); err != nil {
			l.logger.Warn("Failed to write conversation log", "path", path, "error", err)
		}
		if l.global != nil {
			if _, err := l.global.Write(line); err != nil {
				l.logger.Warn("Failed to write global conversation log", "error", err)
			}
		}
	}
}

func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func sessionFileName(sessionID string) string {
	if sessionID == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, sessionID)
}

var (
	ansiCSI = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	ansiOSC = regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)
)

// cleanForReadability strips terminal escape sequences and stray control
// characters so the log reads as plain text.
func cleanForReadability(raw string) string {
	s := ansiOSC.ReplaceAllString(raw, "")
	s = ansiCSI.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
