package notify

import (
	"bytes"
	"testing"
)

func TestConsoleToast(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := NewConsole(&buf)
	n.Toast("  Cancelled ")
	n.Toast("   ")

	if got := buf.String(); got != "» Cancelled\n" {
		t.Fatalf("unexpected output %q", got)
	}
}
