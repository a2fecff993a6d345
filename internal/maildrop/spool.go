package maildrop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SpoolComposer writes messages to a spool directory instead of sending
// them. Used in development and in tests.
type SpoolComposer struct {
	dir string

	mu  sync.Mutex
	seq int
}

// NewSpoolComposer creates a file-spool composer rooted at dir.
func NewSpoolComposer(dir string) (*SpoolComposer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	return &SpoolComposer{dir: dir}, nil
}

func (c *SpoolComposer) Compose(_ context.Context, msg Message) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	name := fmt.Sprintf("%d-%03d.eml", time.Now().Unix(), seq)
	content := fmt.Sprintf("To: %s\nSubject: %s\n\n%s", msg.To, msg.Subject(), msg.Body())

	err := os.WriteFile(filepath.Join(c.dir, name), []byte(content), 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHandoffFailed, err)
	}

	return nil
}
