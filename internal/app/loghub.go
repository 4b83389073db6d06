package app

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

const logHubBacklog = 200

// LogHub fans formatted log lines out to subscribers. New subscribers
// receive a replay of the recent backlog first, so a control client that
// connects mid-run still sees how the run got to where it is.
type LogHub struct {
	mu      sync.Mutex
	subs    map[chan string]struct{}
	backlog []string
}

func NewLogHub() *LogHub {
	return &LogHub{subs: make(map[chan string]struct{})}
}

// Publish sends a line to every subscriber. Slow subscribers are skipped
// rather than blocking the logging path.
func (h *LogHub) Publish(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.backlog = append(h.backlog, line)
	if len(h.backlog) > logHubBacklog {
		h.backlog = h.backlog[len(h.backlog)-logHubBacklog:]
	}

	for ch := range h.subs {
		select {
		case ch <- line:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel along with
// a cancel function. The backlog is queued onto the channel before any
// live lines arrive.
func (h *LogHub) Subscribe() (<-chan string, func()) {
	ch := make(chan string, logHubBacklog+64)

	h.mu.Lock()
	for _, line := range h.backlog {
		ch <- line
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Core returns a zapcore.Core that publishes every enabled log entry to
// the hub. Tee it with the primary core so console output is unaffected.
func (h *LogHub) Core(enc zapcore.Encoder, level zapcore.LevelEnabler) zapcore.Core {
	return &hubCore{hub: h, enc: enc, level: level}
}

type hubCore struct {
	hub   *LogHub
	enc   zapcore.Encoder
	level zapcore.LevelEnabler
}

func (c *hubCore) Enabled(level zapcore.Level) bool {
	return c.level.Enabled(level)
}

func (c *hubCore) With(fields []zapcore.Field) zapcore.Core {
	clone := c.enc.Clone()
	for _, f := range fields {
		f.AddTo(clone)
	}
	return &hubCore{hub: c.hub, enc: clone, level: c.level}
}

func (c *hubCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *hubCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	line := strings.TrimRight(buf.String(), "\n")
	buf.Free()
	c.hub.Publish(line)
	return nil
}

func (c *hubCore) Sync() error { return nil }
