// Package cmdutil holds functionality to run phylum via cobra. That
// includes flag parsing and configuration of components common to all
// subcommands.
package cmdutil

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/phylum-dev/cli/internal/client"
	"github.com/phylum-dev/cli/internal/config"
	"github.com/phylum-dev/cli/internal/ui"
)

const (
	_envLogLevel = "PHYLUM_LOG_LEVEL"
	_envAPIKey   = "PHYLUM_API_KEY"
)

// Helper is a struct used to hold configuration values passed via flag, env
// vars, config files, etc. It is not intended for direct use by phylum
// commands, it drives the creation of CmdBase, which is then used by the
// commands themselves.
type Helper struct {
	// Version is the version of phylum that is currently executing.
	Version string

	forceColor bool
	noColor    bool
	verbosity  int
	apiBaseURL string

	Fs afero.Fs

	cleanupsMu sync.Mutex
	cleanups   []io.Closer
}

// RegisterCleanup saves a function to be run after phylum execution, even
// if the command that runs returns an error.
func (h *Helper) RegisterCleanup(cleanup io.Closer) {
	h.cleanupsMu.Lock()
	defer h.cleanupsMu.Unlock()
	h.cleanups = append(h.cleanups, cleanup)
}

// Cleanup runs the registered cleanup handlers. It requires the flags to
// the root command so that it can construct a UI if necessary.
func (h *Helper) Cleanup(flags *pflag.FlagSet) {
	h.cleanupsMu.Lock()
	defer h.cleanupsMu.Unlock()
	var term cli.Ui
	for _, cleanup := range h.cleanups {
		if err := cleanup.Close(); err != nil {
			if term == nil {
				term = h.getUI(flags)
			}
			term.Warn(fmt.Sprintf("failed cleanup: %v", err))
		}
	}
}

// PrintError reports an error returned from a command's RunE that hasn't
// already been surfaced through a CmdBase, e.g. one that failed before
// GetCmdBase could construct one. Used by the root dispatcher when
// mapping errors to exit codes (spec §6).
func (h *Helper) PrintError(flags *pflag.FlagSet, err error) {
	h.getUI(flags).Error(fmt.Sprintf("%s%s", ui.ERROR_PREFIX, color.RedString(" %v", err)))
}

func (h *Helper) getUI(flags *pflag.FlagSet) cli.Ui {
	colorMode := ui.GetColorModeFromEnv()
	if flags.Changed("no-color") && h.noColor {
		colorMode = ui.ColorModeSuppressed
	}
	if flags.Changed("color") && h.forceColor {
		colorMode = ui.ColorModeForced
	}
	return ui.BuildColoredUi(colorMode)
}

func (h *Helper) getLogger() (hclog.Logger, error) {
	var level hclog.Level
	switch h.verbosity {
	case 0:
		if v := os.Getenv(_envLogLevel); v != "" {
			level = hclog.LevelFromString(v)
			if level == hclog.NoLevel {
				return nil, fmt.Errorf("%s value %q is not a valid log level", _envLogLevel, v)
			}
		} else {
			level = hclog.NoLevel
		}
	case 1:
		level = hclog.Info
	case 2:
		level = hclog.Debug
	default:
		level = hclog.Trace
	}

	output := ioutil.Discard
	colorOpt := hclog.ColorOff
	if level != hclog.NoLevel {
		output = os.Stderr
		colorOpt = hclog.AutoColor
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   "phylum",
		Level:  level,
		Color:  colorOpt,
		Output: output,
	}), nil
}

// AddFlags adds common flags for all phylum commands to the given flagset
// and binds them to this instance of Helper.
func (h *Helper) AddFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&h.forceColor, "color", false, "Force color usage in the terminal")
	flags.BoolVar(&h.noColor, "no-color", false, "Suppress color usage in the terminal")
	flags.CountVarP(&h.verbosity, "verbosity", "v", "verbosity")
	flags.StringVar(&h.apiBaseURL, "api-uri", "", "Override the risk-analysis service URI")
}

// NewHelper returns a new helper instance to hold configuration values for
// the root phylum command.
func NewHelper(version string) *Helper {
	return &Helper{
		Version: version,
		Fs:      afero.NewOsFs(),
	}
}

// GetCmdBase returns a CmdBase instance configured with values from this
// helper.
func (h *Helper) GetCmdBase(flags *pflag.FlagSet) (*CmdBase, error) {
	terminal := h.getUI(flags)

	logger, err := h.getLogger()
	if err != nil {
		return nil, err
	}

	settings, err := config.LoadSettings(h.Fs)
	if err != nil {
		return nil, err
	}

	apiBaseURL := settings.ConnectionURI
	if h.apiBaseURL != "" {
		apiBaseURL = h.apiBaseURL
	}

	token := settings.AuthInfo.OfflineAccess
	if v := os.Getenv(_envAPIKey); v != "" {
		token = v
	}

	apiClient := client.NewClient(client.Opts{
		APIBaseURL: apiBaseURL,
		Token:      token,
		Logger:     logger,
	})

	return &CmdBase{
		UI:        terminal,
		Logger:    logger,
		Fs:        h.Fs,
		APIClient: apiClient,
		Settings:  settings,
		Version:   h.Version,
	}, nil
}

// CmdBase encompasses configured components common to all phylum commands.
type CmdBase struct {
	UI        cli.Ui
	Logger    hclog.Logger
	Fs        afero.Fs
	APIClient *client.Client
	Settings  *config.Settings
	Version   string
}

// LogError prints an error to the UI.
func (b *CmdBase) LogError(format string, args ...interface{}) {
	err := fmt.Errorf(format, args...)
	b.Logger.Error("error", err)
	b.UI.Error(fmt.Sprintf("%s%s", ui.ERROR_PREFIX, color.RedString(" %v", err)))
}

// LogWarning logs an error and outputs it to the UI.
func (b *CmdBase) LogWarning(prefix string, err error) {
	b.Logger.Warn(prefix, "warning", err)

	if prefix != "" {
		prefix = " " + prefix + ": "
	}

	b.UI.Warn(fmt.Sprintf("%s%s%s", ui.WARNING_PREFIX, prefix, color.YellowString(" %v", err)))
}

// LogInfo logs a message and outputs it to the UI.
func (b *CmdBase) LogInfo(msg string) {
	b.Logger.Info(msg)
	b.UI.Info(fmt.Sprintf("%s%s", ui.InfoPrefix, color.WhiteString(" %v", msg)))
}
