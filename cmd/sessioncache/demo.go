package main

import (
	"context"
	"fmt"
	"time"

	cache "github.com/krisalay/session-cache"
	"github.com/krisalay/session-cache/types"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk through the cache behavior step by step",
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().Duration("ttl", 200*time.Millisecond, "TTL used by the expiration steps")
}

func runDemo(cmd *cobra.Command, _ []string) error {
	logger := loggerFor(cmd)
	ttl, _ := cmd.Flags().GetDuration("ttl")
	out := cmd.OutOrStdout()

	c := cache.New(
		cache.WithLogger[string](logger),
		cache.WithRemovalListener[string](func(ev types.RemovalEvent[string]) {
			logger.Info("entry left the cache", "key", ev.Key.String(), "value", ev.Value, "reason", ev.Reason.String())
		}),
	)
	defer c.Close()

	fmt.Fprintln(out, "\n==================== 1) ADD & GET ====================")
	if _, err := c.AddOrUpdate("Test", "Hello!", "Console", cache.NoExpiration); err != nil {
		return err
	}
	v, _ := c.Get("test", "console")
	fmt.Fprintln(out, "CACHE  → GET test|console =", v)

	fmt.Fprintln(out, "\n==================== 2) SESSION ISOLATION ====================")
	_, _ = c.AddOrUpdate("K", "A", "S1", cache.NoExpiration)
	_, _ = c.AddOrUpdate("K", "B", "S2", cache.NoExpiration)
	_, _ = c.AddOrUpdate("K", "C", "", cache.NoExpiration)
	fmt.Fprintln(out, "CACHE  → GET K (all sessions) =", c.GetAll("K"))
	v, _ = c.Get("K", "S1")
	fmt.Fprintln(out, "CACHE  → GET K|S1 =", v)

	fmt.Fprintln(out, "\n==================== 3) TTL EXPIRATION ====================")
	_, _ = c.AddOrUpdate("x", "temp-value", "S1", ttl)
	fmt.Fprintf(out, "CACHE  → PUT x|S1 (TTL = %v), TTL now %v\n", ttl, c.TTL("x", "S1"))
	time.Sleep(2 * ttl)
	_, ok := c.Get("x", "S1")
	fmt.Fprintln(out, "CACHE  → x|S1 present after TTL =", ok)

	fmt.Fprintln(out, "\n==================== 4) OVERWRITE BEFORE EXPIRY ====================")
	_, _ = c.AddOrUpdate("y", "v1", "S1", ttl)
	_, _ = c.AddOrUpdate("y", "v2", "S1", cache.NoExpiration)
	time.Sleep(2 * ttl)
	v, _ = c.Get("y", "S1")
	fmt.Fprintln(out, "CACHE  → GET y|S1 after old TTL =", v)

	fmt.Fprintln(out, "\n==================== 5) READ-THROUGH ====================")
	loads := 0
	loader := types.LoaderFunc[string](func(_ context.Context, key types.CompositeKey) (string, time.Duration, error) {
		loads++
		return "loaded:" + key.Key(), cache.NoExpiration, nil
	})
	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad(cmd.Context(), "profile", "S1", loader)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "CACHE  → GETORLOAD profile|S1 =", v)
	}
	fmt.Fprintln(out, "LOADER → calls =", loads)

	fmt.Fprintln(out, "\n==================== 6) CLEAR SESSION ====================")
	if err := c.Clear("s1"); err != nil {
		return err
	}
	fmt.Fprintln(out, "CACHE  → GET K (all sessions) after clearing S1 =", c.GetAll("K"))
	fmt.Fprintln(out, "CACHE  → COUNT =", c.Count())

	fmt.Fprintln(out, "\n==================== SHUTDOWN ====================")
	if err := c.Close(); err != nil {
		return err
	}
	_, err := c.AddOrUpdate("late", "value", "S1", cache.NoExpiration)
	fmt.Fprintln(out, "CACHE  → write after close:", err)
	return nil
}
