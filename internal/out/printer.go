package out

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiDim    = "\033[2m"
)

// Printer renders the bot's human-facing status lines. Cosmetic only; the
// functional record is the log and the outcome journal.
type Printer struct {
	w     io.Writer
	color bool
}

func New(w io.Writer) *Printer {
	return &Printer{w: w, color: os.Getenv("NO_COLOR") == ""}
}

func NewPlain(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + ansiReset
}

func (p *Printer) Successf(format string, args ...any) {
	fmt.Fprintln(p.w, p.paint(ansiGreen, "✔ "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Infof(format string, args ...any) {
	fmt.Fprintln(p.w, p.paint(ansiCyan, fmt.Sprintf(format, args...)))
}

func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintln(p.w, p.paint(ansiYellow, "! "+fmt.Sprintf(format, args...)))
}

// TxLink prints the block-explorer link for a submitted transaction.
func (p *Printer) TxLink(explorerURL, kind, hash string) {
	link := strings.TrimRight(explorerURL, "/") + "/tx/" + hash
	p.Successf("%s submitted: %s", kind, link)
}

// Countdown redraws a single line with the time left until the next run.
func (p *Printer) Countdown(remaining time.Duration) {
	remaining = remaining.Round(time.Second)
	h := int(remaining.Hours())
	m := int(remaining.Minutes()) % 60
	s := int(remaining.Seconds()) % 60
	fmt.Fprintf(p.w, "\r%s", p.paint(ansiDim, fmt.Sprintf("next run in %02dh%02dm%02ds", h, m, s)))
}

// EndCountdown terminates the countdown line before normal output resumes.
func (p *Printer) EndCountdown() {
	fmt.Fprintln(p.w)
}
