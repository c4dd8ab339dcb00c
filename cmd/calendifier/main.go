// Command calendifier renders the current month as a text grid using the
// full aggregation stack: config, event storage, recurrence expansion,
// holiday resolution and the shared cache.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/oernster/calendifier-sub002/calendar"
	"github.com/oernster/calendifier-sub002/calendar/cache"
	"github.com/oernster/calendifier-sub002/calendar/holiday"
	"github.com/oernster/calendifier-sub002/calendar/holiday/dataset"
	"github.com/oernster/calendifier-sub002/calendar/storage"
	"github.com/oernster/calendifier-sub002/calendar/storage/memory"
	"github.com/oernster/calendifier-sub002/calendar/storage/sqlite"
	"github.com/oernster/calendifier-sub002/calendar/translate"
	"github.com/oernster/calendifier-sub002/config"
	"github.com/oernster/calendifier-sub002/pkg/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "calendifier:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	events, cleanup, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	catalog, err := translate.Builtin()
	if err != nil {
		return err
	}

	mapping := holiday.NewMapping()
	country := mapping.Country(cfg.Locale)
	if cfg.HolidayCountry != "" {
		country = cfg.HolidayCountry
		mapping = mapping.WithOverride(cfg.Locale, country)
	}

	resolver := holiday.NewResolver(dataset.New(),
		holiday.WithTranslator(catalog),
		holiday.WithMapping(mapping),
		holiday.WithLogger(logger),
	)

	expCache := cache.New(cache.Config{TTL: cfg.CacheTTL, MaxEntries: cfg.CacheMaxEntries}, logger)
	expCache.StartSweeper(time.Now)
	defer expCache.Close()

	agg := calendar.New(events, resolver,
		calendar.WithCache(expCache),
		calendar.WithTranslator(catalog),
		calendar.WithLogger(logger),
		calendar.WithMetrics(metrics.New(metrics.WithEnabled(cfg.MetricsEnabled))),
	)

	now := time.Now()
	month, err := agg.BuildMonth(calendar.MonthRequest{
		Year:     now.Year(),
		Month:    now.Month(),
		Locale:   cfg.Locale,
		Country:  country,
		FirstDay: cfg.FirstDayOfWeek,
		Now:      now,
	})
	if err != nil {
		return err
	}

	printMonth(month)
	return nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (storage.EventSource, func(), error) {
	if cfg.DatabasePath != "" {
		store, err := sqlite.Open(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite store", "path", cfg.DatabasePath)
		return store, func() { store.Close() }, nil
	}

	logger.Info("using in-memory store with demo events")
	store := memory.New()
	seedDemo(store, logger)
	return store, func() {}, nil
}

func seedDemo(store *memory.Store, logger *slog.Logger) {
	now := time.Now()
	monday := now.AddDate(0, 0, -int((now.Weekday()+6)%7))

	demo := []storage.Event{
		{
			Title: "Team standup",
			Start: time.Date(monday.Year(), monday.Month(), monday.Day(), 9, 30, 0, 0, time.Local).AddDate(0, -2, 0),
			End:   time.Date(monday.Year(), monday.Month(), monday.Day(), 9, 45, 0, 0, time.Local).AddDate(0, -2, 0),
			RRule: "FREQ=WEEKLY;BYDAY=MO,WE,FR",
		},
		{
			Title:  "Rent due",
			AllDay: true,
			Start:  time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local).AddDate(0, -3, 0),
			End:    time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local).AddDate(0, -3, 0),
			RRule:  "FREQ=MONTHLY;BYMONTHDAY=1",
		},
		{
			Title: "Dentist",
			Start: time.Date(now.Year(), now.Month(), 17, 14, 0, 0, 0, time.Local),
			End:   time.Date(now.Year(), now.Month(), 17, 15, 0, 0, 0, time.Local),
		},
	}
	for _, ev := range demo {
		if _, err := store.CreateEvent(ev); err != nil {
			logger.Warn("failed to seed demo event", "title", ev.Title, "error", err)
		}
	}
}

func printMonth(m *calendar.CalendarMonth) {
	fmt.Printf("%s %d\n\n", m.MonthName, m.Year)

	for _, name := range m.WeekdayNames {
		fmt.Printf("%-4s", abbrev(name))
	}
	fmt.Println()

	for _, week := range m.Weeks {
		for _, day := range week {
			cell := fmt.Sprintf("%2d", day.Date.Day())
			switch {
			case day.Today:
				cell = "[" + cell + "]"
			case day.OtherMonth:
				cell = " " + strings.ToLower(cell) + " "
			default:
				cell = " " + cell + " "
			}
			fmt.Printf("%-4s", cell)
		}
		fmt.Println()
	}
	fmt.Println()

	for _, week := range m.Weeks {
		for _, day := range week {
			for _, h := range day.Holidays {
				fmt.Printf("%s  %s\n", day.Date.Format(time.DateOnly), h.LocalName)
			}
			for _, occ := range day.Occurrences {
				when := "all day"
				if !occ.AllDay {
					when = occ.Start.Format("15:04")
				}
				fmt.Printf("%s  %s (%s)\n", day.Date.Format(time.DateOnly), occ.Title, when)
			}
		}
	}
}

func abbrev(name string) string {
	runes := []rune(name)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
