package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.pilab.hu/portal/cmd/portalctl/config"
	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/log"
	"go.pilab.hu/portal/tracing"
)

var appLogger log.Logger = log.Nop() // Package-level logger

var (
	outputFormat string
	noColor      bool
	verbose      bool
	traceSpans   bool

	tracerProvider *sdktrace.TracerProvider
)

var rootCmd = &cobra.Command{
	Use:           config.AppName,
	Short:         "portalctl buys and manages insurance policies from the command line",
	Long:          `A command-line client for the insurance portal: sign up, get a quotation, upload documents, pay, and review issued policies.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		appLogger = log.NewZerologAdapter(level, true)
		color.NoColor = color.NoColor || noColor

		if outputFormat != formatTable && outputFormat != formatYAML {
			return fmt.Errorf("unsupported output format %q (table or yaml)", outputFormat)
		}

		if traceSpans {
			tp, err := tracing.InitTracerProvider(config.AppName,
				stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
			if err != nil {
				return fmt.Errorf("initialize tracing: %w", err)
			}
			tracerProvider = tp
		}

		if err := config.InitConfig(); err != nil {
			appLogger.Error(cmd.Context(), "Failed to initialize configuration", err)
			return err
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdownTracing()
	},
}

func shutdownTracing() error {
	if tracerProvider == nil {
		return nil
	}
	tp := tracerProvider
	tracerProvider = nil
	return tp.Shutdown(context.Background())
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		_ = shutdownTracing()
		appLogger.Debug(context.Background(), "CLI execution failed", map[string]interface{}{"error": err.Error()})
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", message(err))
		os.Exit(1)
	}
}

// message prefers the portal's user-facing text for portal errors.
func message(err error) string {
	if perrors.KindOf(err) != "" {
		return perrors.UserMessage(err)
	}
	return err.Error()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&config.CfgFile, "config", "",
		fmt.Sprintf("config file (default is $HOME/.%s/config.yaml)", config.AppName))
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatTable, "output format: table or yaml")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&traceSpans, "trace", false, "print OpenTelemetry spans to stderr")
}
