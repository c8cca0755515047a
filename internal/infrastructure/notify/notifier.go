package notify

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"ContractGuard/internal/ports"
)

// Console prints user-facing toasts to a terminal stream.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

var _ ports.Notifier = (*Console)(nil)

// NewConsole writes to w, or to stderr when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stderr
	}
	return &Console{w: w}
}

// Toast prints msg on its own line. Blank messages are dropped.
func (c *Console) Toast(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "» %s\n", msg)
}
