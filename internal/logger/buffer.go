package logger

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogEntry represents a single log entry in the buffer.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogBuffer is a thread-safe ring buffer for log entries. It is the
// sink of the TUI zap core: entries evicted from the ring, and whatever
// remains at Close, spill into an optional rotating file so a session
// log survives the buffer size. It implements io.Writer over JSON log
// lines.
type LogBuffer struct {
	mu      sync.Mutex
	ring    []LogEntry
	maxSize int
	next    int
	wrapped bool
	spill   io.WriteCloser

	totalEntries   uint64
	spilledEntries uint64
}

// NewRotatingSpill returns a size/age-rotated spill target for the
// buffer. Rotation parameters come from the logging config section.
func NewRotatingSpill(path string, maxSizeMB, maxBackups, maxAgeDays int) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
}

// NewLogBuffer creates a ring buffer of maxSize entries. spill may be
// nil, in which case evicted entries are dropped.
func NewLogBuffer(maxSize int, spill io.WriteCloser) *LogBuffer {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LogBuffer{
		ring:    make([]LogEntry, maxSize),
		maxSize: maxSize,
		spill:   spill,
	}
}

// Write accepts one JSON-encoded log line from the zap core, decodes
// it, and appends it to the ring. Undecodable input is kept verbatim as
// the message so nothing is silently lost.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	entry := decodeEntry(p)
	lb.Add(entry)
	return len(p), nil
}

func decodeEntry(p []byte) LogEntry {
	var raw map[string]interface{}
	if err := json.Unmarshal(p, &raw); err != nil {
		return LogEntry{
			Timestamp: time.Now(),
			Level:     "info",
			Message:   string(p),
		}
	}

	entry := LogEntry{Timestamp: time.Now()}
	if level, ok := raw["level"].(string); ok {
		entry.Level = level
		delete(raw, "level")
	}
	if msg, ok := raw["msg"].(string); ok {
		entry.Message = msg
		delete(raw, "msg")
	}
	if ts, ok := raw["time"].(string); ok {
		// zap's ISO8601 encoder omits the offset colon RFC3339 wants.
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			entry.Timestamp = parsed
		} else if parsed, err := time.Parse("2006-01-02T15:04:05.000Z0700", ts); err == nil {
			entry.Timestamp = parsed
		}
		delete(raw, "time")
	}
	if len(raw) > 0 {
		entry.Fields = raw
	}
	return entry
}

// Add appends an entry, spilling the evicted one once the ring wraps.
func (lb *LogBuffer) Add(entry LogEntry) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.wrapped {
		lb.spillLocked(lb.ring[lb.next])
	}

	lb.ring[lb.next] = entry
	lb.next = (lb.next + 1) % lb.maxSize
	if lb.next == 0 {
		lb.wrapped = true
	}
	lb.totalEntries++
}

// spillLocked writes an evicted entry as a JSON line. Spill failures
// are counted away silently: the buffer is itself the logging path.
func (lb *LogBuffer) spillLocked(entry LogEntry) {
	if lb.spill == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if _, err := lb.spill.Write(append(data, '\n')); err != nil {
		return
	}
	lb.spilledEntries++
}

// GetRecentLogs returns up to limit of the most recent entries, oldest
// first. limit <= 0 returns everything currently buffered.
func (lb *LogBuffer) GetRecentLogs(limit int) []LogEntry {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	count := lb.next
	start := 0
	if lb.wrapped {
		count = lb.maxSize
		start = lb.next
	}
	if limit > 0 && limit < count {
		start = (start + count - limit) % lb.maxSize
		count = limit
	}

	logs := make([]LogEntry, 0, count)
	for i := 0; i < count; i++ {
		logs = append(logs, lb.ring[(start+i)%lb.maxSize])
	}
	return logs
}

// GetStats returns buffer statistics.
func (lb *LogBuffer) GetStats() (total, spilled uint64) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.totalEntries, lb.spilledEntries
}

// Close drains the remaining ring into the spill file and closes it.
// Together with eviction spills this leaves every entry of the session
// in the file exactly once.
func (lb *LogBuffer) Close() error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.spill == nil {
		return nil
	}

	count := lb.next
	start := 0
	if lb.wrapped {
		count = lb.maxSize
		start = lb.next
	}
	for i := 0; i < count; i++ {
		lb.spillLocked(lb.ring[(start+i)%lb.maxSize])
	}
	return lb.spill.Close()
}
