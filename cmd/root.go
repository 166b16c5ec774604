package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mcpask/internal/color"
	"mcpask/internal/config"
	"mcpask/internal/llm"
	"mcpask/internal/orchestrator"
	"mcpask/internal/reporting"
	"mcpask/pkg/logging"
)

// skipSettingsAnnotation marks commands that run without loading settings.
const skipSettingsAnnotation = "mcpask/skip-settings"

var (
	mcpConfigPath    string
	logLevel         string
	handshakeTimeout time.Duration
	providerName     string
	modelName        string
	noColor          bool
	parallelism      int
)

// settings is resolved once per invocation by PersistentPreRunE.
var settings = config.GetDefaultSettings()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mcpask",
	Short: "Ask a language model with local MCP tool servers attached",
	Long: `mcpask sends prompts to a hosted language model (Gemini, OpenAI or Anthropic)
and lets the model call the tools of local MCP servers.

The servers are read from an mcp.json file with a top-level "mcpServers" object.
Each enabled server is started as a subprocess and initialized over stdio.
Servers that fail to start are reported and skipped; when none connects the
model is called without tools. Every server is stopped when the command ends.

API keys are read from the environment or a .env file (GEMINI_API_KEY,
OPENAI_API_KEY, ANTHROPIC_API_KEY).`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid arguments, failed connections)
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcpask version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&mcpConfigPath, "mcp-config", config.DefaultMCPConfig, "Path to the MCP server configuration")
	flags.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.DurationVar(&handshakeTimeout, "handshake-timeout", orchestrator.DefaultHandshakeTimeout, "Time allowed for each server's initialize handshake (0 disables)")
	flags.StringVar(&providerName, "provider", string(config.ProviderGemini), "Model provider (gemini, openai, anthropic)")
	flags.StringVar(&modelName, "model", "", "Model name (default depends on the provider)")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flags.IntVar(&parallelism, "parallel", 1, "Number of servers started at once")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}

// setup initializes logging and resolves settings from defaults, settings
// files, .env, the environment and flags, in increasing precedence.
func setup(cmd *cobra.Command, args []string) error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())

	if cmd.Annotations[skipSettingsAnnotation] == "true" {
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	if _, err := config.LoadDotEnv(wd); err != nil {
		return err
	}

	loaded, err := config.LoadSettings()
	if err != nil {
		return err
	}
	settings, err = config.Finalize(applyFlags(cmd, loaded))
	return err
}

// applyFlags overrides s with every flag given on the command line.
func applyFlags(cmd *cobra.Command, s config.Settings) config.Settings {
	flags := cmd.Flags()
	if flags.Changed("mcp-config") {
		s.MCPConfig = mcpConfigPath
	}
	if flags.Changed("handshake-timeout") {
		s.HandshakeTimeout = handshakeTimeout
	}
	if flags.Changed("provider") {
		s.Provider = config.Provider(providerName)
		// The model of another provider would be rejected.
		s.Model = ""
	}
	if flags.Changed("model") {
		s.Model = modelName
	}
	if flags.Changed("parallel") {
		s.Parallelism = parallelism
	}
	return s
}

func newStyles(w io.Writer) color.Styles {
	return color.NewStyles(w, !noColor)
}

func newOrchestrator(out io.Writer) *orchestrator.Orchestrator {
	return orchestrator.New(
		orchestrator.WithLauncher(&orchestrator.ProcessLauncher{ShutdownGrace: settings.ShutdownGrace}),
		orchestrator.WithReporter(reporting.NewConsoleReporter(out, !noColor)),
		orchestrator.WithHandshakeTimeout(settings.HandshakeTimeout),
		orchestrator.WithClientInfo("mcpask", rootCmd.Version),
		orchestrator.WithParallelism(settings.Parallelism),
	)
}

func newModel() (*llm.Agent, error) {
	provider, err := llm.NewProvider(settings.Provider, config.CredentialsFor(settings.Provider))
	if err != nil {
		return nil, err
	}
	logging.Debug("CLI", "Using %s model %s", provider.Name(), settings.Model)
	return llm.NewAgent(provider,
		llm.WithModel(settings.Model),
		llm.WithTemperature(settings.TemperatureValue()),
		llm.WithMaxTokens(settings.MaxTokens),
		llm.WithMaxToolRounds(settings.MaxToolRounds),
	), nil
}

// interruptibleContext returns a context cancelled on SIGINT or SIGTERM.
func interruptibleContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logging.Info("CLI", "Received interrupt signal, shutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
