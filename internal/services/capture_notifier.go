package services

import (
	"context"
	"log/slog"
	"sync"
)

// CaptureNotifier is the development Notifier: it logs each delivery and keeps the latest
// code per address so it can be read back without a mail server. Not for production.
type CaptureNotifier struct {
	logger *slog.Logger
	mu     sync.RWMutex
	codes  map[string]string
}

func NewCaptureNotifier(logger *slog.Logger) *CaptureNotifier {
	return &CaptureNotifier{logger: logger, codes: make(map[string]string)}
}

func (n *CaptureNotifier) Deliver(ctx context.Context, address, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	n.codes[address] = code
	n.mu.Unlock()
	n.logger.InfoContext(ctx, "verification code captured", "address", address)
	return nil
}

// Latest returns the last code delivered to address.
func (n *CaptureNotifier) Latest(address string) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	code, ok := n.codes[address]
	return code, ok
}
