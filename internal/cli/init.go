package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const defaultConfigName = "swagger2loadtest.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample swagger2loadtest configuration file",
		Long:  "Scaffold a commented swagger2loadtest configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			return initRunner(cmd.Context(), &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			})
		},
	}

	cmd.Flags().String("out", defaultConfigName, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx
	log := newLogger(os.Stderr, cfg.Verbose)

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigName
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	// Atomic write via temp + rename
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	log.Debug("sample config written", "path", absPath, "bytes", len(content))
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# swagger2loadtest configuration (YAML)
# All fields are optional. Precedence: defaults < this file <
# SWAGGER2LOADTEST_* environment variables < command-line flags.

# Path or URL to the Swagger/OpenAPI document (http/https or local file).
# input: ./petstore.yaml

# Output directory. When omitted, derived from scriptName or the spec title.
# out: ./petstore

# Only include operations with these tags (comma-separated or list).
# includeTags: [pet, store]

# Exclude operations with these tags (comma-separated or list).
# excludeTags: [internal]

# Only include operations using these HTTP methods.
# methods: [get, post]

# Only include operations whose path matches one of these regular expressions.
# paths: ["^/pet"]

# Script name. Sanitized to lowercase/dash.
# scriptName: petstore

# Saved into the BaseURL parameter in vuser_init. Derived from schemes and host when omitted.
# baseURL: https://petstore.example.com

# Content types to build example bodies for, in order of preference.
# contentTypes: [application/json, application/xml]

# Override the declared type of swagger primitives.
# typeMappings:
#   DateTime: String
#   number: Double

# Model names escaped with a leading underscore. Replaces the default set.
# reservedWords: [Action, vuser_init, vuser_end]

# Operations preprocessed concurrently (1 = sequential).
# workers: 1

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite non-empty output directory.
# force: false

# Enable debug logging.
# verbose: false
`
