// midimap/cmd/midimapd/main.go

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rgehrsitz/midimap/pkg/compiler"
	"rgehrsitz/midimap/pkg/logging"
	"rgehrsitz/midimap/pkg/runtime"
	"rgehrsitz/midimap/pkg/transport"
)

// Config represents the application configuration
type Config struct {
	RulesFile          string
	TableFile          string
	LogLevel           string
	LogDestination     string
	Trace              bool
	TraceNonBlocking   bool
	TransportType      string
	RedisAddress       string
	RedisPassword      string
	RedisDB            int
	RedisInputChannel  string
	RedisOutputChannel string
	NatsURL            string
	NatsInputSubject   string
	NatsOutputSubject  string
	DashboardEnabled   bool
	DashboardPort      int
	DashboardInterval  int
}

// Dependencies represents the external dependencies of the daemon
type Dependencies struct {
	Transport transport.Transport
	Engine    *runtime.Engine
	Registry  *prometheus.Registry
	// TraceCloser flushes the trace logger; closed after the main loop ends. Nil without tracing.
	TraceCloser io.Closer
}

// TransportFactory creates the input/output endpoint
type TransportFactory interface {
	NewTransport(ctx context.Context, config *Config) (transport.Transport, error)
}

// EngineFactory creates the translation engine
type EngineFactory interface {
	NewEngine(config *Config, opts ...runtime.Option) (*runtime.Engine, error)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := newRootCmd(&RealTransportFactory{}, &RealEngineFactory{})
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("Application failed")
	}
}

func newRootCmd(transportFactory TransportFactory, engineFactory EngineFactory) *cobra.Command {
	var configFile, rulesFile string

	runE := func(cmd *cobra.Command, args []string) error {
		config, err := parseConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to parse configuration: %w", err)
		}
		if rulesFile != "" {
			config.RulesFile = rulesFile
			config.TableFile = ""
		}
		return run(cmd.Context(), config, transportFactory, engineFactory)
	}

	root := &cobra.Command{
		Use:           "midimapd",
		Short:         "Translate control messages between two channels using a mapping rule set",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runE,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file")
	root.Flags().StringVar(&rulesFile, "rules", "", "Rule set file, overrides rules_file and table_file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the translator (default)",
		Args:  cobra.NoArgs,
		RunE:  runE,
	}
	runCmd.Flags().StringVar(&rulesFile, "rules", "", "Rule set file, overrides rules_file and table_file")

	root.AddCommand(runCmd, newCheckCmd(), newCompileCmd())
	return root
}

func run(ctx context.Context, config *Config, transportFactory TransportFactory, engineFactory EngineFactory) error {
	if err := logging.ConfigureLogger(config.LogLevel, config.LogDestination); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}

	deps, err := setupDependencies(ctx, config, transportFactory, engineFactory)
	if err != nil {
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	defer deps.Transport.Close()

	return runMainLoop(ctx, deps, config)
}

func parseConfig(configFile string) (*Config, error) {
	// .env is optional; values from the real environment win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("json")
	v.SetDefault("rules_file", "")
	v.SetDefault("table_file", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "console")
	v.SetDefault("logging.trace", true)
	v.SetDefault("logging.trace_nonblocking", true)
	v.SetDefault("transport.type", "redis")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.input_channel", "midi_in")
	v.SetDefault("redis.output_channel", "midi_out")
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.input_subject", "midi.in")
	v.SetDefault("nats.output_subject", "midi.out")
	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.port", 8090)
	v.SetDefault("dashboard.update_interval", 1)

	v.SetEnvPrefix("MIDIMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		v.SetConfigName("midimap_config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.midimap")
		v.AddConfigPath("/etc/midimap")
	} else {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		logging.Logger.Info().Msg("No configuration file found, using defaults")
	}

	config := &Config{
		RulesFile:          v.GetString("rules_file"),
		TableFile:          v.GetString("table_file"),
		LogLevel:           v.GetString("logging.level"),
		LogDestination:     v.GetString("logging.output"),
		Trace:              v.GetBool("logging.trace"),
		TraceNonBlocking:   v.GetBool("logging.trace_nonblocking"),
		TransportType:      v.GetString("transport.type"),
		RedisAddress:       v.GetString("redis.address"),
		RedisPassword:      v.GetString("redis.password"),
		RedisDB:            v.GetInt("redis.database"),
		RedisInputChannel:  v.GetString("redis.input_channel"),
		RedisOutputChannel: v.GetString("redis.output_channel"),
		NatsURL:            v.GetString("nats.url"),
		NatsInputSubject:   v.GetString("nats.input_subject"),
		NatsOutputSubject:  v.GetString("nats.output_subject"),
		DashboardEnabled:   v.GetBool("dashboard.enabled"),
		DashboardPort:      v.GetInt("dashboard.port"),
		DashboardInterval:  v.GetInt("dashboard.update_interval"),
	}

	switch config.TransportType {
	case "redis", "nats":
	default:
		return nil, logging.NewError(logging.ErrorTypeConfig, fmt.Sprintf("unknown transport type %q", config.TransportType), nil, nil)
	}
	if config.DashboardInterval <= 0 {
		config.DashboardInterval = 1
	}

	return config, nil
}

func setupDependencies(ctx context.Context, config *Config, transportFactory TransportFactory, engineFactory EngineFactory) (*Dependencies, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []runtime.Option{runtime.WithMetrics(runtime.NewMetrics(registry))}
	var traceCloser io.Closer
	if config.Trace {
		var trace zerolog.Logger
		trace, traceCloser = logging.NewTraceLogger(os.Stderr, config.TraceNonBlocking)
		opts = append(opts, runtime.WithTrace(trace))
	}
	closeTrace := func() {
		if traceCloser != nil {
			traceCloser.Close()
		}
	}

	engine, err := engineFactory.NewEngine(config, opts...)
	if err != nil {
		closeTrace()
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	tr, err := transportFactory.NewTransport(ctx, config)
	if err != nil {
		closeTrace()
		return nil, fmt.Errorf("failed to initialize transport: %w", err)
	}

	return &Dependencies{
		Transport:   tr,
		Engine:      engine,
		Registry:    registry,
		TraceCloser: traceCloser,
	}, nil
}

func runMainLoop(ctx context.Context, deps *Dependencies, config *Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if config.DashboardEnabled {
		dashboard := runtime.NewDashboard(deps.Engine, config.DashboardPort,
			time.Duration(config.DashboardInterval)*time.Second, deps.Registry)
		go func() {
			if err := dashboard.Start(ctx); err != nil {
				logging.LogError(logging.Logger, err)
			}
		}()
	}

	logging.Logger.Info().Str("transport", config.TransportType).Msg("midimap translator started")

	err := deps.Transport.Listen(ctx, deps.Engine.Handler(deps.Transport))

	deps.Engine.LogStats()
	if deps.TraceCloser != nil {
		if cerr := deps.TraceCloser.Close(); cerr != nil {
			logging.Logger.Warn().Err(cerr).Msg("Failed to flush translation trace")
		}
	}
	logging.Logger.Info().Msg("Shutting down midimap translator")
	return err
}

// RealTransportFactory implements TransportFactory
type RealTransportFactory struct{}

func (f *RealTransportFactory) NewTransport(ctx context.Context, config *Config) (transport.Transport, error) {
	switch config.TransportType {
	case "nats":
		return transport.NewNatsTransport(config.NatsURL, config.NatsInputSubject, config.NatsOutputSubject)
	default:
		return transport.NewRedisTransport(ctx, config.RedisAddress, config.RedisPassword, config.RedisDB,
			config.RedisInputChannel, config.RedisOutputChannel)
	}
}

// RealEngineFactory implements EngineFactory
type RealEngineFactory struct{}

func (f *RealEngineFactory) NewEngine(config *Config, opts ...runtime.Option) (*runtime.Engine, error) {
	if config.TableFile != "" {
		return runtime.NewEngineFromFile(config.TableFile, opts...)
	}
	return runtime.NewEngine(compiler.Compile(config.RulesFile), opts...), nil
}
