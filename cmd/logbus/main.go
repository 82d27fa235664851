package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/logbus/internal/cliconfig"
	"github.com/bft-labs/logbus/pkg/log"
	"github.com/bft-labs/logbus/pkg/logbus"
)

const helpDescription = `
Relay message batches between application instances through one shared,
bounded, append-only log (a MongoDB capped collection or an embedded
Pebble store).

Every instance appends what it sends and tails what all instances append.
Configure via $HOME/.logbus/config.toml, LOGBUS_* environment variables,
or flags (flags win, then environment, then file).
`

var exampleUsage = strings.TrimSpace(`
  logbus init --connection mongodb://localhost:27017/chat
  logbus send --connection mongodb://localhost:27017/chat --stream 0 --key room-1 hello
  logbus tail --connection pebble:///var/lib/logbus --stream 2
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app carries the resolved configuration shared by every subcommand.
type app struct {
	cfg     cliconfig.Config
	cfgPath string
	log     zerolog.Logger
}

func main() {
	a := &app{cfg: cliconfig.DefaultConfig(), log: cliconfig.Logger(cliconfig.DefaultConfig())}

	root := &cobra.Command{
		Use:               "logbus",
		Short:             "Scale-out message backplane over a bounded, tailing log",
		Long:              strings.TrimSpace(helpDescription),
		Example:           exampleUsage,
		Version:           fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:      true,
		PersistentPreRunE: a.loadConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.logbus/config.toml)")
	flags.StringVar(&a.cfg.Connection, "connection", a.cfg.Connection, "store connection string (mongodb://, mem://, pebble:// or a directory)")
	flags.StringVar(&a.cfg.Collection, "collection", a.cfg.Collection, "bounded collection name")
	flags.Int64Var(&a.cfg.MaxBytes, "max-bytes", a.cfg.MaxBytes, "collection size cap in bytes")
	flags.Int64Var(&a.cfg.MaxRecords, "max-records", a.cfg.MaxRecords, "collection record cap")
	flags.DurationVar(&a.cfg.RetryDelay, "retry-delay", a.cfg.RetryDelay, "delay between connect attempts")
	flags.DurationVar(&a.cfg.RetryMaxDelay, "retry-max-delay", a.cfg.RetryMaxDelay, "enable exponential connect backoff up to this delay")
	flags.DurationVar(&a.cfg.PollInterval, "poll", a.cfg.PollInterval, "poll interval when the store cannot await")
	flags.DurationVar(&a.cfg.AwaitTimeout, "await-timeout", a.cfg.AwaitTimeout, "bound on one server-side wait")
	flags.DurationVar(&a.cfg.ConnectTimeout, "connect-timeout", a.cfg.ConnectTimeout, "bound on one connect attempt")
	flags.IntVar(&a.cfg.StreamCount, "streams", a.cfg.StreamCount, "number of streams announced after connecting")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.BoolVar(&a.cfg.LogJSON, "log-json", a.cfg.LogJSON, "write JSON log lines instead of console output")

	root.AddCommand(a.initCommand(), a.sendCommand(), a.tailCommand())

	if err := root.Execute(); err != nil {
		a.log.Error().Err(err).Msg("logbus")
		os.Exit(1)
	}
}

// loadConfig resolves file, environment and flag settings in that order of
// increasing precedence.
func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := cliconfig.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.log = cliconfig.Logger(a.cfg)
	a.log.Debug().Interface("config", a.cfg).Msg("configuration")
	return nil
}

func (a *app) logger() log.Logger {
	return log.NewZerologAdapterWithLogger(a.log)
}

func (a *app) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the bounded collection, or check that the existing one is bounded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Backplane()
			cfg.SetDefaults()
			store, err := logbus.NewStore(cfg, a.logger())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectTimeout)
			defer cancel()
			if err := store.Open(ctx); err != nil {
				return fmt.Errorf("open %s: %w", store.Name(), err)
			}
			if err := store.Close(ctx); err != nil {
				return fmt.Errorf("close %s: %w", store.Name(), err)
			}

			a.log.Info().
				Str("store", store.Name()).
				Str("collection", cfg.Collection).
				Int64("max_bytes", cfg.MaxCollectionBytes).
				Int64("max_records", cfg.MaxRecords).
				Msg("collection ready")
			return nil
		},
	}
}

func (a *app) sendCommand() *cobra.Command {
	var (
		stream int
		msg    logbus.Message
	)
	cmd := &cobra.Command{
		Use:   "send VALUE...",
		Short: "Append one batch, one message per VALUE",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bp, err := logbus.New(a.cfg.Backplane(), nil,
				logbus.WithSendOnly(),
				logbus.WithLogger(a.logger()),
			)
			if err != nil {
				return err
			}
			defer bp.Close()

			batch := make([]logbus.Message, 0, len(args))
			for _, v := range args {
				m := msg
				m.Value = []byte(v)
				batch = append(batch, m)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.ConnectTimeout)
			defer cancel()
			id, err := bp.SendRecord(ctx, stream, batch)
			if err != nil {
				return err
			}
			a.log.Info().Stringer("id", id).Int("stream", stream).Int("messages", len(batch)).Msg("sent")
			return nil
		},
	}
	cmd.Flags().IntVar(&stream, "stream", 0, "stream index")
	cmd.Flags().StringVar(&msg.Key, "key", "", "routing key of every message")
	cmd.Flags().StringVar(&msg.Source, "source", "logbus-cli", "source of every message")
	cmd.Flags().StringVar(&msg.CommandID, "command-id", "", "command correlation id")
	return cmd
}

func (a *app) tailCommand() *cobra.Command {
	var stream int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Log every delivered batch until interrupted",
		Long: "Run a backplane and log every delivered batch until SIGINT or SIGTERM.\n" +
			"Delivered records are marked consumed. Send SIGUSR1 to dump metrics.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sink := metrics.NewInmemSink(10*time.Second, time.Minute)
			sig := metrics.DefaultInmemSignal(sink)
			defer sig.Stop()

			sub := logbus.SubscriberFuncs{
				Received: func(s int, token uint64, msgs []logbus.Message) error {
					if stream >= 0 && s != stream {
						return nil
					}
					for _, m := range msgs {
						a.log.Info().
							Int("stream", s).
							Time("created", time.Unix(0, int64(token))).
							Str("source", m.Source).
							Str("key", m.Key).
							Bytes("value", m.Value).
							Msg("received")
					}
					return nil
				},
				Error: func(s int, err error) {
					a.log.Warn().Int("stream", s).Err(err).Msg("delivery failed")
				},
			}

			bp, err := logbus.New(a.cfg.Backplane(), sub,
				logbus.WithLogger(a.logger()),
				logbus.WithMetricSink(sink),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := bp.WaitConnected(ctx); err != nil && ctx.Err() == nil {
				_ = bp.Close()
				return err
			}
			<-ctx.Done()
			a.log.Info().Msg("received signal, stopping...")
			return bp.Close()
		},
	}
	cmd.Flags().IntVar(&stream, "stream", -1, "only log batches of this stream (-1 for all)")
	return cmd
}
