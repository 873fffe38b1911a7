package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/muesli/termenv"
)

// statusColors maps status kinds to ANSI colour codes. Anything else is magenta.
var statusColors = map[domain.StatusKind]string{
	domain.KindSuccess: "2",
	domain.KindFailure: "1",
	domain.KindRunning: "3",
}

// detailIndent lines verbose output up under the status column.
const detailIndent = "         "

// TextHandler prints one coloured line per tick and reads prompts line by line.
type TextHandler struct {
	Writer  io.Writer
	Verbose bool

	out   *termenv.Output
	src   *bufio.Reader
	lines chan line
	once  sync.Once
}

type line struct {
	text string
	err  error
}

type TextHandlerOption func(*TextHandler)

// WithProfile forces a colour profile instead of detecting it from the writer.
func WithProfile(p termenv.Profile) TextHandlerOption {
	return func(h *TextHandler) {
		h.out = termenv.NewOutput(h.Writer, termenv.WithProfile(p))
	}
}

// WithVerbose prints blackboard changes and directives below each tick line.
func WithVerbose(verbose bool) TextHandlerOption {
	return func(h *TextHandler) { h.Verbose = verbose }
}

// NewTextHandler reads from r and writes to w, defaulting to stdin and stdout.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Writer: w, src: bufio.NewReader(r), out: termenv.NewOutput(w)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) paint(st domain.Status) string {
	code, ok := statusColors[st.Kind()]
	if !ok {
		code = "5"
	}
	return h.out.String(fmt.Sprintf("%-8s", st.Kind())).Foreground(h.out.Color(code)).Bold().String()
}

func (h *TextHandler) Tick(_ context.Context, r TickReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%4d] %s %8s", r.Sequence, h.paint(r.Status), r.Duration.Round(time.Microsecond))
	if reason := r.reason(); reason != "" {
		b.WriteString("  " + reason)
	}
	if keys := r.Changes.Keys(); len(keys) > 0 {
		b.WriteString("  " + h.out.String("~"+strings.Join(keys, ",")).Faint().String())
	}
	b.WriteByte('\n')

	if h.Verbose {
		if r.Changes != nil {
			for _, k := range domain.NewBlackboard(r.Changes.Changed).Keys() {
				fmt.Fprintf(&b, "%s%s = %v\n", detailIndent, k, r.Changes.Changed[k])
			}
			for _, k := range r.Changes.Deleted {
				fmt.Fprintf(&b, "%s%s deleted\n", detailIndent, k)
			}
		}
		for _, d := range r.Directives {
			fmt.Fprintf(&b, "%sdirective: %v\n", detailIndent, d)
		}
	}
	_, err := io.WriteString(h.Writer, b.String())
	return err
}

func (h *TextHandler) Done(_ context.Context, res Result) error {
	status := "none"
	if res.Status.Kind() != 0 {
		status = strings.TrimSpace(h.paint(res.Status))
	}
	_, err := fmt.Fprintf(h.Writer, "%s after %d ticks\n", status, res.Ticks)
	return err
}

func (h *TextHandler) SystemOutput(_ context.Context, msg string) error {
	_, err := fmt.Fprintln(h.Writer, h.out.String(msg).Faint().String())
	return err
}

// read feeds lines to h.lines until the reader fails. The channel is closed
// after the last line; a non-EOF error is delivered first.
func (h *TextHandler) read() {
	defer close(h.lines)
	for {
		text, err := h.src.ReadString('\n')
		if text != "" {
			h.lines <- line{text: text}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			h.lines <- line{err: err}
			return
		}
	}
}

// Input prompts for one line and returns it trimmed and sanitized.
// Lines that fail sanitization are reported and the prompt repeats.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.once.Do(func() {
		h.lines = make(chan line)
		go h.read()
	})

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprint(h.Writer, "> ")

		var l line
		var ok bool
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case l, ok = <-h.lines:
		}
		switch {
		case !ok:
			return "", io.EOF
		case l.err != nil:
			return "", l.err
		}
		clean, err := SanitizeInput(strings.TrimSpace(l.text))
		if err != nil {
			fmt.Fprintf(h.Writer, "invalid input: %v. Please try again.\n", err)
			continue
		}
		return clean, nil
	}
}
