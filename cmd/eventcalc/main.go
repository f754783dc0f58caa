// Command eventcalc populates the event store for a year range by
// wiring the ephemeris provider chain, store, and coordinator together
// and running a single population pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/naren-m/astroevents/astronomy/ephemeris"
	"github.com/naren-m/astroevents/config"
	"github.com/naren-m/astroevents/coordinator"
	"github.com/naren-m/astroevents/store"
)

func main() {
	var (
		startYear     = flag.Int("start", config.DefaultConfig().DefaultStartYear, "first calendar year to compute (inclusive)")
		endYear       = flag.Int("end", config.DefaultConfig().DefaultEndYear, "last calendar year to compute (inclusive)")
		dbPath        = flag.String("db", "astroevents.db", "sqlite database file path")
		ephemerisPath = flag.String("ephemeris-path", "", "Swiss Ephemeris data file directory")
	)
	flag.Parse()

	cfg := config.DefaultConfig()
	cfg.StorePath = *dbPath
	cfg.EphemerisPath = *ephemerisPath

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg, *startYear, *endYear); err != nil {
		log.Fatalf("eventcalc: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, startYear, endYear int) error {
	s, err := store.Open(ctx, cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	primary := ephemeris.NewSwissProvider(cfg.EphemerisPath)
	secondary := ephemeris.NewJPLProvider(cfg.EphemerisPath)
	lowPrecision := ephemeris.NewLowPrecisionProvider()
	cache := ephemeris.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL)
	manager := ephemeris.NewManager(primary, secondary, lowPrecision, cache)
	defer manager.Close()

	coord := coordinator.New(s, manager, cfg)

	return coord.Run(ctx, startYear, endYear, func(percent float64, message string) {
		fmt.Printf("[%5.1f%%] %s\n", percent, message)
	})
}
