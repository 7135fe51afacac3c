package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goliatone/go-inventory-cache/internal/masters"
	"github.com/goliatone/go-inventory-cache/invalidation"
	"github.com/goliatone/go-inventory-cache/pkg/di"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:           "inventory-cache",
		Short:         "Inspect and exercise the inventory cache and its invalidation rules",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "path to a YAML/JSON/TOML config file")
	flags.String("dsn", masters.InMemoryDSN, "database DSN (postgres:// or sqlite)")
	flags.Int("max-size", 0, "maximum number of cache entries")
	flags.Duration("default-ttl", 0, "default entry TTL, 0 keeps entries until evicted")
	flags.String("backend", "", "store backend: lru or sharded")
	flags.String("env", "", "environment: development or production")

	bindings := map[string]string{
		"dsn":               "dsn",
		"cache.max_size":    "max-size",
		"cache.default_ttl": "default-ttl",
		"cache.backend":     "backend",
		"environment":       "env",
	}

	load := func(cmd *cobra.Command) (appConfig, error) {
		for key, flag := range bindings {
			if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return appConfig{}, err
				}
			}
		}
		return loadConfig(v, configFile)
	}

	root.AddCommand(newRulesCmd(), newPatternsCmd(), newDemoCmd(load))
	return root
}

func newRulesCmd() *cobra.Command {
	var entity string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the invalidation rule table",
		RunE: func(cmd *cobra.Command, args []string) error {
			table := invalidation.NewRuleTable(invalidation.DefaultRules())

			rules := table.GetAllRules()
			if entity != "" {
				rules = table.GetRulesForEntity(entity)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rules)
			}
			return writeRules(cmd.OutOrStdout(), rules)
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "only show rules for this entity")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newPatternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns <entity> <CREATE|UPDATE|DELETE>",
		Short: "Show the key patterns a mutation would invalidate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trigger, err := invalidation.ParseTrigger(args[1])
			if err != nil {
				return err
			}

			table := invalidation.NewRuleTable(invalidation.DefaultRules())
			for _, p := range table.GetInvalidationPatterns(args[0], trigger) {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func newDemoCmd(load func(*cobra.Command) (appConfig, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Seed master data, warm the cache and run an invalidation round trip",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.Environment)
			if err != nil {
				return errors.Wrap(err, "build logger")
			}
			defer logger.Sync()

			return runDemo(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
		},
	}
}

func runDemo(ctx context.Context, out io.Writer, cfg appConfig, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := masters.OpenDB(ctx, cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := masters.CreateSchema(ctx, db); err != nil {
		return err
	}

	container, err := di.NewContainer(cfg.storeConfig(), di.WithLogger(logger))
	if err != nil {
		return err
	}

	repos := masters.NewRepositories(db)
	sellers := di.NewCachedRepository(container, repos.Sellers, masters.EntitySeller)
	clients := di.NewCachedRepository(container, repos.Clients, masters.EntityClient)

	if _, err := sellers.Create(ctx, &masters.Seller{ID: uuid.New(), Name: "seller-" + uuid.NewString()[:8]}); err != nil {
		return errors.Wrap(err, "seed seller")
	}
	if _, err := clients.Create(ctx, &masters.Client{ID: uuid.New(), Name: "almacen", Nit: uuid.NewString()[:10]}); err != nil {
		return errors.Wrap(err, "seed client")
	}

	for _, warm := range []func(context.Context) (int, error){
		func(ctx context.Context) (int, error) { return sellers.WarmMasters(ctx, cfg.WarmTTL) },
		func(ctx context.Context) (int, error) { return clients.WarmMasters(ctx, cfg.WarmTTL) },
	} {
		if _, err := warm(ctx); err != nil {
			return err
		}
	}

	keys := container.KeyBuilder()
	store := container.Store()
	store.Set(keys.ListKey(masters.EntitySeller, 1), "page 1")

	fmt.Fprintf(out, "warmed keys: %s\n", strings.Join(store.Keys(), ", "))

	if _, _, err := sellers.List(ctx); err != nil {
		return err
	}
	result := container.Invalidation().InvalidateOnCreate(masters.EntitySeller)
	if err := writeJSON(out, result); err != nil {
		return err
	}

	fmt.Fprintf(out, "remaining keys: %s\n", strings.Join(store.Keys(), ", "))
	return writeJSON(out, store.Stats())
}

func writeRules(out io.Writer, rules []invalidation.Rule) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tTRIGGER\tPATTERNS")
	for _, r := range rules {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Entity, r.Trigger, strings.Join(r.Patterns, " "))
	}
	return w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
