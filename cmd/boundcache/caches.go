package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/c360/boundcache/config"
	"github.com/c360/boundcache/errors"
	"github.com/c360/boundcache/metric"
	"github.com/c360/boundcache/pkg/cache"
	"github.com/c360/boundcache/storage/durable"
)

// hostedCache is one namespace served by the daemon. Values are held in
// their generic decoded form.
type hostedCache struct {
	namespace string
	cache     cache.Cache[any]
}

// openCaches builds every configured cache in namespace order. On failure the
// caches opened so far are closed.
func openCaches(
	ctx context.Context,
	cfg *config.Config,
	store durable.Store,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) ([]hostedCache, error) {
	names := make([]string, 0, len(cfg.Caches))
	for name := range cfg.Caches {
		names = append(names, name)
	}
	sort.Strings(names)

	codec := cache.CodecByName(cfg.Store.Codec)
	caches := make([]hostedCache, 0, len(names))
	for _, name := range names {
		c, err := cache.NewFromConfig[any](ctx, name, cfg.Caches[name],
			cache.WithStore[any](store),
			cache.WithCodec[any](codec),
			cache.WithMetrics[any](registry, name),
			cache.WithLogger[any](logger),
		)
		if err != nil {
			_ = closeCaches(context.Background(), caches)
			return nil, errors.WrapFatal(err, "main", "openCaches", "create cache "+name)
		}

		stats := c.Stats()
		slog.Info("Cache ready",
			"namespace", name,
			"enabled", cfg.Caches[name].Enabled,
			"persist", cfg.Caches[name].Persist,
			"entries", stats.EntryCount,
			"memory_bytes", stats.MemoryBytes)

		caches = append(caches, hostedCache{namespace: name, cache: c})
	}
	return caches, nil
}

// closeCaches closes every cache, which writes the final snapshots. It stops
// waiting when ctx is done.
func closeCaches(ctx context.Context, caches []hostedCache) error {
	done := make(chan error, 1)
	go func() {
		var errs []error
		for _, hc := range caches {
			if err := hc.cache.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", hc.namespace, err))
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "main", "closeCaches", "flush caches")
	}
}

// inspectSnapshot prints the persisted snapshot of namespace.
func inspectSnapshot(ctx context.Context, w io.Writer, store durable.Store, codecName, namespace string, now time.Time) error {
	info, err := cache.ReadSnapshot(ctx, store, cache.CodecByName(codecName), namespace, now)
	if err != nil {
		if errors.IsNotFound(err) {
			_, _ = fmt.Fprintf(w, "no snapshot for namespace %q\n", namespace)
			return nil
		}
		return fmt.Errorf("inspect %s: %w", namespace, err)
	}

	_, _ = fmt.Fprintf(w, "namespace: %s\nversion:   %d\nsaved_at:  %s\nbytes:     %d\nentries:   %d\n\n",
		info.Namespace, info.Version, info.SavedAt.Format(time.RFC3339), info.Bytes, len(info.Entries))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tTTL\tAGE\tACCESSES\tEXPIRED")
	for _, e := range info.Entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\n",
			e.Key, e.TTL, now.Sub(e.CreatedAt).Truncate(time.Second), e.AccessCount, e.Expired)
	}
	return tw.Flush()
}
