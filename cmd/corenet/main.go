package main

import (
	"fmt"
	"os"

	"corenet/pkg/config"
	"corenet/pkg/coordinator"
	"corenet/pkg/events"
	"corenet/pkg/matcher"
	"corenet/pkg/metrics"
	"corenet/pkg/types"
	"corenet/pkg/utils"
	"corenet/pkg/world"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "v0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "corenet",
		Short: "Network request aggregation over linked containers",
		Long: `Resolve the storage locations reachable through a spark network and
count, locate or extract items across all of them at once.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("world", "w", "", "world description (YAML)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(
		requestCmd(),
		countCmd(),
		locateCmd(),
		signalCmd(),
		replayCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("corenet %s\n", version)
		},
	}
}

// loadConfig layers the configuration: defaults, then .env files and
// CORENET_* variables, then the config file, then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	// the remaining CORENET_* settings are read by config.LoadFromEnv
	_ = v.BindEnv("config", "CORENET_CONFIG")
	_ = v.BindEnv("verbose", "CORENET_VERBOSE")

	cfg := config.LoadFromEnv()
	if path := v.GetString("config"); path != "" {
		var err error
		cfg, err = config.LoadConfigFrom(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if v.IsSet("world") {
		cfg.WorldFile = v.GetString("world")
	}
	if v.GetBool("verbose") {
		cfg.LogLevel = "debug"
	}
	if v.IsSet("metrics-address") {
		cfg.Metrics.Address = v.GetString("metrics-address")
		cfg.Metrics.Enabled = true
	}
	if v.IsSet("cycle") {
		cfg.CycleInterval = v.GetDuration("cycle")
	}

	if cfg.WorldFile == "" {
		return nil, fmt.Errorf("world file is required (--world or CORENET_WORLD_FILE)")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, _ := config.Build()
	return logger
}

// runtime is a loaded world with a coordinator over it.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	world   *world.World
	bus     *events.Bus
	metrics *metrics.Metrics
	coord   *coordinator.Coordinator
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.LogLevel)

	w, err := world.Load(cfg.WorldFile, logger.Named("world"))
	if err != nil {
		logger.Sync()
		return nil, err
	}

	bus := events.NewBus(logger.Named("events"))
	m := metrics.New(nil)
	coord := coordinator.NewWithHooks(w.Registry, logger.Named("coordinator"), coordinator.Hooks{
		Veto:    bus.Post,
		Metrics: m,
	})

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		world:   w,
		bus:     bus,
		metrics: m,
		coord:   coord,
	}, nil
}

// target parses the common <spark> <pattern> arguments.
func (rt *runtime) target(args []string) (types.Node, types.Matcher, error) {
	s, err := rt.world.Spark(types.NodeID(args[0]))
	if err != nil {
		return nil, nil, err
	}
	m, err := matcher.NewPattern(args[1])
	if err != nil {
		return nil, nil, err
	}
	return s, m, nil
}

func (rt *runtime) sparkAt(loc types.Location) string {
	if n, ok := rt.coord.NodeFor(loc); ok && n != nil {
		return string(n.ID())
	}
	return "-"
}

func parseQuantityArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return types.Unbounded, nil
	}
	q, err := utils.ParseQuantity(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid quantity: %w", err)
	}
	return q, nil
}
