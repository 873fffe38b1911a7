package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
)

// Message is one JSON-Lines record written by JSONHandler.
type Message struct {
	Type    string      `json:"type"`
	Tick    *TickReport `json:"tick,omitempty"`
	Result  *Result     `json:"result,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Message types.
const (
	MessageTick   = "tick"
	MessageDone   = "done"
	MessageSystem = "system"
)

// JSONHandler implements Handler for structured JSON-Lines communication.
type JSONHandler struct {
	Reader *bufio.Reader

	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONHandler creates a handler writing to w and reading answers from r.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) emit(m Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.encoder.Encode(m)
}

func (h *JSONHandler) Tick(_ context.Context, r TickReport) error {
	r.Reason = r.reason()
	return h.emit(Message{Type: MessageTick, Tick: &r})
}

func (h *JSONHandler) Done(_ context.Context, res Result) error {
	return h.emit(Message{Type: MessageDone, Result: &res})
}

func (h *JSONHandler) SystemOutput(_ context.Context, msg string) error {
	return h.emit(Message{Type: MessageSystem, Message: msg})
}

// Input reads one line. A JSON string is unquoted, anything else is returned as is.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		text = val
	}
	return SanitizeInput(text)
}
