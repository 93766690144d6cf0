package config

// EnvPrefix prefixes every environment override, e.g. HEADFIND_RULES_PACK.
const EnvPrefix = "HEADFIND"

// Rule defaults.
const (
	DefaultPack = "spanish"
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Server defaults.
const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 8080
	DefaultReadTimeout  = "15s"
	DefaultWriteTimeout = "30s"
	DefaultIdleTimeout  = "60s"
	DefaultMaxBodyBytes = 4 << 20 // 4 MiB.
)

// Telemetry defaults.
const (
	DefaultSampleRatio = 1.0
)
