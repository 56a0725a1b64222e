package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/sandeepkv93/tempod/internal/materialize"
	"github.com/sandeepkv93/tempod/internal/timeutil"
)

const (
	daySyncTick    = time.Second
	daySyncBackoff = 300 * time.Second
)

// DaySync keeps the Today list current. It ticks every second; the
// materializers fast-path unchanged days, so the steady-state cost is
// one comparison. A failing pass backs off for five minutes instead
// of retrying hot.
type DaySync struct {
	store          materialize.Store
	repeatings     *materialize.RepeatingMaterializer
	events         *materialize.EventMaterializer
	writer         *Writer
	dayStartOffset int
	now            func() timeutil.UnixTime
	logger         *slog.Logger

	tick    time.Duration
	backoff time.Duration
}

func NewDaySync(store materialize.Store, repeatings *materialize.RepeatingMaterializer, events *materialize.EventMaterializer, writer *Writer, dayStartOffsetSeconds int, logger *slog.Logger) *DaySync {
	if logger == nil {
		logger = slog.Default()
	}
	return &DaySync{
		store:          store,
		repeatings:     repeatings,
		events:         events,
		writer:         writer,
		dayStartOffset: dayStartOffsetSeconds,
		now:            timeutil.Now,
		logger:         logger,
		tick:           daySyncTick,
		backoff:        daySyncBackoff,
	}
}

// SyncOnce runs one full pass under the writer: rollover first so a
// task materialized for today is not immediately rolled, then events,
// then repeatings.
func (d *DaySync) SyncOnce(ctx context.Context) error {
	return d.writer.Do(func() error {
		now := d.now()
		if err := materialize.RolloverTomorrow(ctx, d.store, now, d.dayStartOffset); err != nil {
			return err
		}
		// Events key on the plain calendar day; only repeatings and
		// the rollover honor the shifted day boundary.
		if err := d.events.SyncToday(ctx, now.LocalDay()); err != nil {
			return err
		}
		return d.repeatings.SyncToday(ctx, now.ShiftedBack(d.dayStartOffset).LocalDay())
	})
}

func (d *DaySync) Run(ctx context.Context) {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := d.SyncOnce(ctx); err != nil {
			d.logger.Error("day sync failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.backoff):
			}
		}
	}
}
