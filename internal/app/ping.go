package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sandeepkv93/tempod/internal/timeutil"
)

const pingPeriod = 10 * time.Minute

// Pinger issues one GET per local day against a liveness URL. The
// loop wakes every ten minutes; the last-pinged day gate makes the
// extra wakeups free and a failed ping retries on the next wakeup.
type Pinger struct {
	url    string
	client *http.Client
	now    func() timeutil.UnixTime
	logger *slog.Logger

	period        time.Duration
	lastPingedDay int
}

func NewPinger(url string, logger *slog.Logger) *Pinger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pinger{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    timeutil.Now,
		logger: logger,
		period: pingPeriod,
	}
}

// PingOnce sends the daily ping unless today's already went out.
func (p *Pinger) PingOnce(ctx context.Context) error {
	today := p.now().LocalDay()
	if today == p.lastPingedDay {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("app: build ping request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("app: ping: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("app: ping returned %s", resp.Status)
	}
	p.lastPingedDay = today
	return nil
}

func (p *Pinger) Run(ctx context.Context) {
	if p.url == "" {
		return
	}
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	for {
		if err := p.PingOnce(ctx); err != nil {
			p.logger.Warn("daily ping failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
