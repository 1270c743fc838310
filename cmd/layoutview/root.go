package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/skdltmxn/cxxlayout/layout"
)

var (
	outputFile string
	configFile string
	output     io.Writer
	logger     = zap.NewNop()
)

// settings are the effective options after merging the config file and
// the command line.
type settings struct {
	target         string
	color          string
	format         string
	logLevel       string
	maxDiagnostics int
	workers        int
}

var opts = settings{
	color:          "auto",
	format:         "json",
	logLevel:       "warn",
	maxDiagnostics: layout.DefaultMaxDiagnostics,
	workers:        runtime.NumCPU(),
}

var rootCmd = &cobra.Command{
	Use:   "layoutview",
	Short: "C++ record layout viewer",
	Long: `layoutview is a command-line tool for inspecting how C++ records are
laid out in memory under the Itanium C++ ABI.

It reads a C++ source file, computes the layout of every class, struct
and union it declares, and shows field offsets, sizes, padding and
bit-fields as tables, trees, byte maps or an interactive viewer.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadSettings(cmd); err != nil {
			return err
		}

		l, err := newLogger(opts.logLevel)
		if err != nil {
			return err
		}
		logger = l
		layout.SetLogger(l)

		if outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			output = f
		} else {
			output = os.Stdout
		}
		color.NoColor = !useColor(opts.color, output)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if f, ok := output.(*os.File); ok && f != os.Stdout {
			f.Close()
		}
		_ = logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&outputFile, "output", "o", "", "write output to file instead of stdout")
	flags.StringVar(&configFile, "config", "", "config file (default: nearest "+configName+")")
	flags.StringVar(&opts.target, "target", "", "target arguments, e.g. \"--target=i386-pc-linux-gnu\" or \"-m32\"")
	flags.StringVar(&opts.color, "color", opts.color, "colorize output: auto|on|off")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level: debug|info|warn|error")
	flags.IntVar(&opts.maxDiagnostics, "max-diagnostics", opts.maxDiagnostics, "maximum number of diagnostics kept (0 = unlimited)")
	flags.IntVar(&opts.workers, "workers", opts.workers, "number of goroutines computing layouts")

	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(bytesCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(renderCmd)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}
