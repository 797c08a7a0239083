// =============================================================================
// agentscope-format 主入口
// =============================================================================
// 把多智能体对话记录格式化为 Anthropic / DashScope 请求载荷
//
// 使用方法:
//
//	agentscope-format format --provider anthropic conv.json        # 输出请求载荷
//	agentscope-format format --config agentscope.yaml a.json b.json
//	agentscope-format complete --provider dashscope conv.json      # 发送请求并输出回复
//	agentscope-format version                                      # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/agentscope/config"
	"github.com/BaSui01/agentscope/internal/metrics"
	"github.com/BaSui01/agentscope/internal/telemetry"
	"github.com/BaSui01/agentscope/llm/observability"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	switch args[0] {
	case "format":
		return runFormat(ctx, args[1:], stdin, stdout, stderr, false)
	case "complete":
		return runFormat(ctx, args[1:], stdin, stdout, stderr, true)
	case "version":
		printVersion(stdout)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}
}

// =============================================================================
// 🖥️ format / complete 命令
// =============================================================================

func runFormat(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, send bool) int {
	name := "format"
	if send {
		name = "complete"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	provider := fs.String("provider", providerAnthropic, "Target provider: anthropic or dashscope")
	mode := fs.String("mode", "", "Formatter mode override: multi_agent or chat")
	maxTokens := fs.Int("max-tokens", -1, "History token budget override, 0 disables truncation")
	concurrency := fs.Int("concurrency", 4, "Files formatted in parallel")
	pretty := fs.Bool("pretty", false, "Indent JSON output")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// 加载配置
	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *mode != "" {
		cfg.Formatter.Mode = *mode
	}
	if *maxTokens >= 0 {
		cfg.Formatter.MaxTokens = *maxTokens
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid config: %v\n", err)
		return 1
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}

	// 仪表绑定到 telemetry.Init 之后的全局 provider
	otelMetrics, err := observability.NewMetrics(otel.GetTracerProvider(), otel.GetMeterProvider())
	if err != nil {
		logger.Warn("failed to create otel instruments", zap.Error(err))
	}

	a, err := newApp(ctx, cfg, appOptions{
		Provider:  *provider,
		Collector: collector,
		Metrics:   otelMetrics,
		Tracer:    otelProviders.Tracer(),
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to build formatter", zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	files := fs.Args()
	if len(files) == 0 {
		files = []string{"-"}
	}

	runErr := a.Run(ctx, files, runOptions{
		Send:        send,
		Concurrency: *concurrency,
		Pretty:      *pretty,
		Stdin:       stdin,
		Stdout:      stdout,
	})

	if collector != nil && cfg.Metrics.TextfilePath != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.TextfilePath, prometheus.DefaultGatherer); err != nil {
			logger.Warn("failed to write metrics textfile",
				zap.String("path", cfg.Metrics.TextfilePath), zap.Error(err))
		}
	}

	if runErr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", runErr)
		return 1
	}
	return 0
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "agentscope-format %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `agentscope-format - multi-agent conversation formatter

Usage:
  agentscope-format <command> [options] [files...]

Commands:
  format    Format conversations into provider request payloads
  complete  Format conversations and send them to the provider
  version   Show version information
  help      Show this help message

Options for 'format' and 'complete':
  --config <path>        Path to configuration file (YAML)
  --provider <name>      anthropic (default) or dashscope
  --mode <mode>          multi_agent or chat, overrides formatter.mode
  --max-tokens <n>       History token budget, 0 disables truncation
  --concurrency <n>      Files formatted in parallel (default 4)
  --pretty               Indent JSON output

Each file holds a JSON array of messages or a request object with
"messages", "options", "tools" and "tool_choice". "-" reads stdin.
'complete' requires multi_agent mode.

Examples:
  agentscope-format format --provider anthropic conversation.json
  agentscope-format format --provider dashscope --mode chat - < conversation.json
  AGENTSCOPE_ANTHROPIC_API_KEY=sk-... agentscope-format complete conversation.json
  agentscope-format version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	// stdout 留给载荷输出，日志默认写 stderr
	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
