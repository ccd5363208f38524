package capture

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/villekr/wsgate/internal/adapter"
	"github.com/villekr/wsgate/internal/logging"
)

// Record is one captured message
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	MessageNum   int       `json:"message_num"`
	RemoteAddr   string    `json:"remote_addr"`
	Path         string    `json:"path,omitempty"`
	Subprotocol  string    `json:"subprotocol"`
	Direction    string    `json:"direction"`
	FrameType    string    `json:"frame_type"`
	PayloadLen   int       `json:"payload_length"`
	PayloadHex   string    `json:"payload_hex"`
	PayloadASCII string    `json:"payload_ascii"`
}

// Recorder appends received messages to a JSONL capture file and delegates
// them to the next handler.
type Recorder struct {
	dir  string
	next adapter.MessageHandler
	now  func() time.Time

	mu    sync.Mutex
	file  *os.File
	path  string
	count int
}

// NewRecorder creates a recorder writing into dir. next may be nil.
func NewRecorder(dir string, next adapter.MessageHandler) *Recorder {
	return &Recorder{dir: dir, next: next, now: time.Now}
}

// Open creates the capture directory and a new capture file. It has the
// shape of a startup hook.
func (r *Recorder) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		return errors.New("capture file already open")
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("failed to create capture directory: %w", err)
	}

	path := filepath.Join(r.dir, fmt.Sprintf("capture-%s.jsonl", r.now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}

	r.file = f
	r.path = path
	r.count = 0

	logging.Info("Message capture enabled", zap.String("filename", path))
	return nil
}

// Close closes the capture file. It has the shape of a shutdown hook.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil

	logging.Info("Message capture closed",
		zap.String("filename", r.path),
		zap.Int("messages", r.count),
	)
	if err != nil {
		return fmt.Errorf("failed to close capture file: %w", err)
	}
	return nil
}

// Path returns the current capture file, or "" before Open.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Count returns the number of messages recorded into the current file.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// HandleMessage records msg and passes it on. A recording failure is logged
// and does not affect the connection.
func (r *Recorder) HandleMessage(ctx context.Context, s *adapter.Session, msg adapter.Message) error {
	r.record(s, msg)
	if r.next == nil {
		return nil
	}
	return r.next.HandleMessage(ctx, s, msg)
}

func (r *Recorder) record(s *adapter.Session, msg adapter.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return
	}

	payload := msg.Bytes()
	frameType := "binary"
	if msg.IsText {
		frameType = "text"
	}

	rec := Record{
		Timestamp:    r.now(),
		MessageNum:   r.count + 1,
		RemoteAddr:   s.RemoteAddr(),
		Path:         s.Path(),
		Subprotocol:  s.Subprotocol(),
		Direction:    "peer->server",
		FrameType:    frameType,
		PayloadLen:   len(payload),
		PayloadHex:   hex.EncodeToString(payload),
		PayloadASCII: toASCII(payload),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		logging.Error("Failed to marshal capture record", zap.Error(err))
		return
	}
	if _, err := r.file.Write(append(data, '\n')); err != nil {
		logging.Error("Failed to write to capture file",
			zap.String("filename", r.path),
			zap.Error(err),
		)
		return
	}
	r.count++

	logging.Debug("Saved message to capture file",
		zap.String("filename", r.path),
		zap.Int("message_num", rec.MessageNum),
	)
}

// toASCII converts bytes to ASCII string (non-printable chars become '.')
func toASCII(data []byte) string {
	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}
