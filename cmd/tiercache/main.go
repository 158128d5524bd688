package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashpect/tiercache/pkg/cache"
	"github.com/ashpect/tiercache/pkg/codec"
	"github.com/ashpect/tiercache/pkg/config"
	"github.com/ashpect/tiercache/pkg/overflow"
	"github.com/ashpect/tiercache/pkg/utils"
)

func main() {
	configFile := flag.String("config", "", "location of config file")
	keys := flag.Int("keys", 5, "number of demo keys to write")
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("config error: %v", err)
		}
		cfg = loaded
	}

	store, closeStore, err := openOverflow(cfg)
	if err != nil {
		log.Fatalf("overflow error: %v", err)
	}
	defer closeStore()

	c, err := cache.New[string, string](cfg.Cache.Capacity,
		cache.WithOverflow[string, string](store),
		cache.WithDefaultTTL[string, string](cfg.Cache.DefaultTTL),
		cache.WithSweepInterval[string, string](cfg.Cache.SweepInterval),
		cache.WithSweepDelay[string, string](cfg.Cache.SweepDelay),
		cache.WithOverflowTimeout[string, string](cfg.Overflow.OpTimeout),
		cache.WithCleanupStart[string, string](cfg.Cache.StartSweeper),
		cache.WithEvictionHook[string, string](func(e *cache.Entry[string, string], spilled bool) {
			utils.Log("evicted %q (spilled=%v, expires %s)", e.Key(), spilled, e.ExpiresAt().Format("15:04:05"))
		}),
	)
	if err != nil {
		log.Fatalf("cache error: %v", err)
	}
	defer c.Close()

	utils.Log("tiercache demo: capacity=%d overflow=%q", cfg.Cache.Capacity, cfg.Overflow.Path)

	for i := 0; i < *keys; i++ {
		key := fmt.Sprintf("key-%d", i)
		if err := c.SetWithTTL(key, fmt.Sprintf("value-%d", i), cache.MinTTL); err != nil {
			utils.Warn("set %s: %v", key, err)
		}
	}
	for i := 0; i < *keys; i++ {
		key := fmt.Sprintf("key-%d", i)
		v, ok := c.Get(key)
		utils.Log("GET %s = %q (found=%v)", key, v, ok)
	}
	utils.Log("swept %d expired entries", c.Sweep())
	utils.Log("stats: %+v", c.Stats())

	if !cfg.Cache.StartSweeper {
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	utils.Log("sweeper running every %s after %s, press Ctrl+C to exit", cfg.Cache.SweepInterval, cfg.Cache.SweepDelay)
	<-ctx.Done()
	utils.Log("shutting down, stats: %+v", c.Stats())
}

func openOverflow(cfg *config.SystemCfg) (cache.Overflow[string, string], func(), error) {
	if cfg.Overflow.Path == "" {
		return overflow.NewMemoryStore[string, string](codec.String{}), func() {}, nil
	}
	store, err := overflow.OpenBolt[string, string](cfg.Overflow.Path, codec.String{}, overflow.Options{
		Bucket:      cfg.Overflow.Bucket,
		LockTimeout: cfg.Overflow.LockTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			utils.Error("close overflow: %v", err)
		}
	}, nil
}
