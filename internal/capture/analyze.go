package capture

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// maxLineSize bounds one capture line: a hex payload at the default read
// limit plus its ASCII rendering and metadata.
const maxLineSize = 4 << 20

// OCPP-J message kinds.
const (
	KindCall       = "call"
	KindCallResult = "result"
	KindCallError  = "error"
	KindOther      = "other"
)

// Summary aggregates the records of a capture file.
type Summary struct {
	Messages     int
	Bytes        int
	Malformed    int // Lines that are not capture records
	First        time.Time
	Last         time.Time
	Peers        map[string]int
	Subprotocols map[string]int
	FrameTypes   map[string]int
	Kinds        map[string]int // OCPP-J message kind per payload
	Actions      map[string]int // Action names of OCPP-J calls
}

func newSummary() *Summary {
	return &Summary{
		Peers:        make(map[string]int),
		Subprotocols: make(map[string]int),
		FrameTypes:   make(map[string]int),
		Kinds:        make(map[string]int),
		Actions:      make(map[string]int),
	}
}

// Analyze reads a capture stream and summarizes it. Lines that do not parse
// are counted in Malformed and skipped.
func Analyze(r io.Reader) (*Summary, error) {
	s := newSummary()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			s.Malformed++
			continue
		}
		s.add(rec)
	}
	if err := scanner.Err(); err != nil {
		return s, fmt.Errorf("failed to read capture: %w", err)
	}
	return s, nil
}

func (s *Summary) add(rec Record) {
	s.Messages++
	s.Bytes += rec.PayloadLen
	if s.First.IsZero() || rec.Timestamp.Before(s.First) {
		s.First = rec.Timestamp
	}
	if rec.Timestamp.After(s.Last) {
		s.Last = rec.Timestamp
	}
	s.Peers[rec.RemoteAddr]++
	s.Subprotocols[rec.Subprotocol]++
	s.FrameTypes[rec.FrameType]++

	payload, err := hex.DecodeString(rec.PayloadHex)
	if err != nil {
		s.Kinds[KindOther]++
		return
	}
	kind, action := Classify(payload)
	s.Kinds[kind]++
	if action != "" {
		s.Actions[action]++
	}
}

// Classify identifies an OCPP-J frame: [2, id, action, payload] is a call,
// [3, id, payload] a result and [4, id, code, description, details] an
// error. Anything else is KindOther.
func Classify(payload []byte) (kind, action string) {
	var frame []json.RawMessage
	if err := json.Unmarshal(payload, &frame); err != nil || len(frame) < 3 {
		return KindOther, ""
	}
	var typeID int
	if err := json.Unmarshal(frame[0], &typeID); err != nil {
		return KindOther, ""
	}

	switch {
	case typeID == 2 && len(frame) == 4:
		if err := json.Unmarshal(frame[2], &action); err != nil || action == "" {
			return KindOther, ""
		}
		return KindCall, action
	case typeID == 3 && len(frame) == 3:
		return KindCallResult, ""
	case typeID == 4 && len(frame) == 5:
		return KindCallError, ""
	default:
		return KindOther, ""
	}
}

// Duration is the time between the first and last record.
func (s *Summary) Duration() time.Duration {
	if s.Messages == 0 {
		return 0
	}
	return s.Last.Sub(s.First)
}
