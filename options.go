package yosoku

import "log/slog"

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	port        int
	dataDir     string
	databaseURL string
	logger      *slog.Logger
	version     string
	generator   StrategyGenerator
}

// WithPort overrides the TCP port from config (YOSOKU_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithDataDir overrides the dataset directory from config (YOSOKU_DATA_DIR env var).
func WithDataDir(dir string) Option {
	return func(o *resolvedOptions) { o.dataDir = dir }
}

// WithDatabaseURL overrides the analysis archive connection string from
// config (DATABASE_URL env var). The archive stays disabled when neither
// is set.
func WithDatabaseURL(url string) Option {
	return func(o *resolvedOptions) { o.databaseURL = url }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithStrategyGenerator replaces the auto-detected Groq LLM client for
// mitigation strategy generation. Only the last call wins. The rule-based
// fallback catalog still applies when the generator fails or returns
// unparseable output.
func WithStrategyGenerator(g StrategyGenerator) Option {
	return func(o *resolvedOptions) { o.generator = g }
}
