package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/foragerr/swagger2loadtest/internal/emitter/lremitter"
	"github.com/foragerr/swagger2loadtest/internal/example"
	"github.com/foragerr/swagger2loadtest/internal/naming"
	"github.com/foragerr/swagger2loadtest/internal/preprocess"
	genspec "github.com/foragerr/swagger2loadtest/internal/spec"
	"github.com/foragerr/swagger2loadtest/internal/typedecl"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, environment variables and CLI
// overrides.
type GenerateConfig struct {
	Input         string
	Out           string
	IncludeTags   []string
	ExcludeTags   []string
	Methods       []string
	Paths         []string
	ScriptName    string
	BaseURL       string
	ContentTypes  []string
	TypeMappings  map[string]string
	ReservedWords []string // nil keeps the default set
	Workers       int
	ConfigPath    string
	DryRun        bool
	Force         bool
	Verbose       bool
}

const envPrefix = "SWAGGER2LOADTEST_"

var allowedMethods = []string{"get", "put", "post", "delete", "options", "head", "patch"}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		ContentTypes: append([]string(nil), example.DefaultContentTypes...),
		Workers:      1,
	}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a LoadRunner script from a Swagger/OpenAPI document",
		Long: "Generate a LoadRunner web script from a Swagger/OpenAPI document. " +
			"Options can be provided via flags, SWAGGER2LOADTEST_* environment variables, config files, or defaults.",
		Example: strings.TrimSpace(`  swagger2loadtest generate --input petstore.yaml --out ./petstore
  swagger2loadtest --config config.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the Swagger/OpenAPI document")
	flags.String("out", "", "Output directory (derived from the script name when omitted)")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include operations using these HTTP methods")
	flags.StringSlice("paths", nil, "Only include operations whose path matches one of these regular expressions")
	flags.String("script-name", "", "Override the generated script name")
	flags.String("base-url", "", "Value saved into the BaseURL parameter (derived from schemes and host when omitted)")
	flags.StringSlice("content-types", nil, "Ordered content types to generate example bodies for")
	flags.StringToString("type-mapping", nil, "Override type mappings, e.g. DateTime=String,number=Double")
	flags.StringSlice("reserved-words", nil, "Replace the reserved-word set used to escape model names")
	flags.Int("workers", 0, "Operations preprocessed concurrently (1 = sequential)")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateEnvOverrides(os.LookupEnv, &cfg); err != nil {
		return nil, err
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"input", &cfg.Input},
		{"out", &cfg.Out},
		{"script-name", &cfg.ScriptName},
		{"base-url", &cfg.BaseURL},
	}
	for _, s := range strs {
		if !flags.Changed(s.name) {
			continue
		}
		value, err := flags.GetString(s.name)
		if err != nil {
			return err
		}
		*s.dst = strings.TrimSpace(value)
	}

	lists := []struct {
		name string
		dst  *[]string
	}{
		{"include-tags", &cfg.IncludeTags},
		{"exclude-tags", &cfg.ExcludeTags},
		{"methods", &cfg.Methods},
		{"paths", &cfg.Paths},
		{"content-types", &cfg.ContentTypes},
		{"reserved-words", &cfg.ReservedWords},
	}
	for _, l := range lists {
		if !flags.Changed(l.name) {
			continue
		}
		value, err := flags.GetStringSlice(l.name)
		if err != nil {
			return err
		}
		*l.dst = sanitizeTags(value)
		if l.name == "reserved-words" && *l.dst == nil {
			*l.dst = []string{}
		}
	}

	if flags.Changed("type-mapping") {
		value, err := flags.GetStringToString("type-mapping")
		if err != nil {
			return err
		}
		cfg.TypeMappings = mergeMappings(cfg.TypeMappings, value)
	}
	if flags.Changed("workers") {
		value, err := flags.GetInt("workers")
		if err != nil {
			return err
		}
		cfg.Workers = value
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"dry-run", &cfg.DryRun},
		{"force", &cfg.Force},
		{"verbose", &cfg.Verbose},
	}
	for _, b := range bools {
		if !flags.Changed(b.name) {
			continue
		}
		value, err := flags.GetBool(b.name)
		if err != nil {
			return err
		}
		*b.dst = value
	}

	return nil
}

// applyGenerateEnvOverrides reads SWAGGER2LOADTEST_<FIELD> variables. Keys use
// the same normalization as config files, so SWAGGER2LOADTEST_INCLUDE_TAGS sets
// includeTags.
func applyGenerateEnvOverrides(lookup func(string) (string, bool), cfg *GenerateConfig) error {
	for _, key := range generateFieldKeys {
		envKey := envPrefix + key.env
		raw, ok := lookup(envKey)
		if !ok {
			continue
		}
		if err := setGenerateField(cfg, key.normalized, raw); err != nil {
			return newUsageError(fmt.Sprintf("environment variable %s: %v", envKey, err))
		}
	}
	return nil
}

var generateFieldKeys = []struct {
	env        string
	normalized string
}{
	{"INPUT", "input"},
	{"OUT", "out"},
	{"INCLUDE_TAGS", "includetags"},
	{"EXCLUDE_TAGS", "excludetags"},
	{"METHODS", "methods"},
	{"PATHS", "paths"},
	{"SCRIPT_NAME", "scriptname"},
	{"BASE_URL", "baseurl"},
	{"CONTENT_TYPES", "contenttypes"},
	{"TYPE_MAPPINGS", "typemappings"},
	{"RESERVED_WORDS", "reservedwords"},
	{"WORKERS", "workers"},
	{"DRY_RUN", "dryrun"},
	{"FORCE", "force"},
	{"VERBOSE", "verbose"},
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.ScriptName = strings.TrimSpace(c.ScriptName)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.Paths = sanitizeTags(c.Paths)
	c.ContentTypes = sanitizeTags(c.ContentTypes)
	if len(c.ContentTypes) == 0 {
		c.ContentTypes = append([]string(nil), example.DefaultContentTypes...)
	}
	methods := make([]string, 0, len(c.Methods))
	for _, m := range c.Methods {
		methods = append(methods, strings.ToLower(strings.TrimSpace(m)))
	}
	c.Methods = sanitizeTags(methods)
	if c.ReservedWords != nil {
		words := sanitizeTags(c.ReservedWords)
		if words == nil {
			words = []string{}
		}
		c.ReservedWords = words
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag, environment or config file)")
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	for _, m := range c.Methods {
		if !containsString(allowedMethods, m) {
			return newUsageError(fmt.Sprintf("generate: unsupported method %q (allowed: %s)", m, strings.Join(allowedMethods, ", ")))
		}
	}

	for _, p := range c.Paths {
		if _, err := regexp.Compile(p); err != nil {
			return newUsageError(fmt.Sprintf("generate: invalid path pattern %q: %v", p, err))
		}
	}

	if len(c.TypeMappings) > 0 {
		known := typedecl.DefaultTypeMapping()
		names := make([]string, 0, len(c.TypeMappings))
		for k := range c.TypeMappings {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			if _, ok := known.Lookup(k); !ok {
				return newUsageError(fmt.Sprintf("generate: unknown type mapping %q (known: %s)", k, strings.Join(known.Keys(), ", ")))
			}
		}
	}

	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	log := newLogger(os.Stderr, cfg.Verbose)

	// 1) Load the spec (file or http/https URL) with validation and conversion
	raw, err := genspec.Load(ctx, cfg.Input, genspec.WithLogger(log))
	if err != nil {
		return specUsageError(err)
	}

	// 2) Build the document with filters
	methods := make([]genspec.HttpMethod, 0, len(cfg.Methods))
	for _, m := range cfg.Methods {
		methods = append(methods, genspec.HttpMethod(m))
	}
	doc, err := genspec.BuildDocument(
		ctx,
		raw,
		genspec.WithIncludeTags(cfg.IncludeTags),
		genspec.WithExcludeTags(cfg.ExcludeTags),
		genspec.WithMethods(methods),
		genspec.WithPathPatterns(cfg.Paths),
	)
	if err != nil {
		return fmt.Errorf("build document: %w", err)
	}
	log.Debug("document built", "title", doc.Title, "operations", len(doc.Operations), "models", len(doc.Models))

	// 3) Attach example bodies
	namer := naming.New(cfg.ReservedWords)
	meta := preprocess.Run(ctx, doc, example.New(doc.Models),
		preprocess.WithContentTypes(cfg.ContentTypes...),
		preprocess.WithWorkers(cfg.Workers),
		preprocess.WithLogger(log),
	)
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Debug("examples attached", "operations", len(meta))

	// 4) Derive sensible defaults for names and out dir when omitted
	scriptName := lremitter.ResolveScriptName(cfg.ScriptName, doc.Title)
	outDir := strings.TrimSpace(cfg.Out)
	if outDir == "" {
		outDir = scriptName
	}

	// Ensure outDir is absolute only for display; the emitter handles actual creation/writes
	absOut := outDir
	if ap, err := filepath.Abs(outDir); err == nil {
		absOut = ap
	}

	// 5) Render the script
	resolver := typedecl.NewResolver(typedecl.DefaultTypeMapping().Override(cfg.TypeMappings), namer)
	res, err := lremitter.Emit(ctx, doc, meta, resolver, lremitter.Options{
		OutDir:       outDir,
		ScriptName:   scriptName,
		BaseURL:      cfg.BaseURL,
		ContentTypes: cfg.ContentTypes,
		Namer:        namer,
		Logger:       log,
		Force:        cfg.Force,
		DryRun:       cfg.DryRun,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}
	if cfg.DryRun {
		paths := make([]string, 0, len(res.Planned))
		for _, p := range res.Planned {
			paths = append(paths, p.RelPath)
		}
		printPlan(absOut, len(res.Planned), paths)
		return nil
	}
	log.Info("script generated", "script", res.ScriptName, "out", absOut, "files", len(res.Planned), "groups", len(res.Groups))
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func printPlan(outDir string, count int, relPaths []string) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, count)
	for _, p := range relPaths {
		fmt.Fprintf(os.Stdout, "- %s\n", p)
	}
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func mergeMappings(base, overrides map[string]string) map[string]string {
	if len(overrides) == 0 {
		return base
	}
	out := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	// Sorted so the first bad key reported is stable.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		normalized := normalizeKey(key)
		if !isGenerateField(normalized) {
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
		if err := setGenerateField(cfg, normalized, raw[key]); err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}

	return nil
}

func isGenerateField(normalized string) bool {
	for _, k := range generateFieldKeys {
		if k.normalized == normalized {
			return true
		}
	}
	return false
}

// setGenerateField assigns one config value. Values come either from a decoded
// config file or, as plain strings, from the environment.
func setGenerateField(cfg *GenerateConfig, normalized string, value any) error {
	var err error
	switch normalized {
	case "input":
		cfg.Input, err = valueAsString(value)
	case "out":
		cfg.Out, err = valueAsString(value)
	case "scriptname":
		cfg.ScriptName, err = valueAsString(value)
	case "baseurl":
		cfg.BaseURL, err = valueAsString(value)
	case "includetags":
		cfg.IncludeTags, err = valueAsSanitizedSlice(value)
	case "excludetags":
		cfg.ExcludeTags, err = valueAsSanitizedSlice(value)
	case "methods":
		cfg.Methods, err = valueAsSanitizedSlice(value)
	case "paths":
		cfg.Paths, err = valueAsSanitizedSlice(value)
	case "contenttypes":
		cfg.ContentTypes, err = valueAsSanitizedSlice(value)
	case "reservedwords":
		var words []string
		words, err = valueAsSanitizedSlice(value)
		if words == nil {
			words = []string{}
		}
		cfg.ReservedWords = words
	case "typemappings":
		var m map[string]string
		m, err = valueAsStringMap(value)
		cfg.TypeMappings = mergeMappings(cfg.TypeMappings, m)
	case "workers":
		cfg.Workers, err = valueAsInt(value)
	case "dryrun":
		cfg.DryRun, err = valueAsBool(value)
	case "force":
		cfg.Force, err = valueAsBool(value)
	case "verbose":
		cfg.Verbose, err = valueAsBool(value)
	default:
		err = fmt.Errorf("unknown field")
	}
	return err
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsSanitizedSlice(v any) ([]string, error) {
	list, err := valueAsStringSlice(v)
	if err != nil {
		return nil, err
	}
	return sanitizeTags(list), nil
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

// valueAsStringMap accepts a mapping or a "k=v,k=v" string.
func valueAsStringMap(v any) (map[string]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		out := map[string]string{}
		for _, pair := range splitAndTrim(val) {
			k, value, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid mapping %q (want key=value)", pair)
			}
			out[strings.TrimSpace(k)] = strings.TrimSpace(value)
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(val))
		for k, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[strings.TrimSpace(k)] = str
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected mapping, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case nil:
		return 0, nil
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, fmt.Errorf("invalid integer value %q", val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
