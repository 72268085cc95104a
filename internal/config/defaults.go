package config

const (
	defaultConfigPath        = "~/.config/creditwatch/config.toml"
	defaultStoreDir          = "~/.local/share/creditwatch/fingerprints"
	defaultDebugDir          = "~/.local/share/creditwatch/debug"
	defaultLogDir            = "~/.local/share/creditwatch/logs"
	defaultHistoryPath       = "~/.local/share/creditwatch/history.db"
	defaultThreads           = 4
	defaultCaptureIntervalMS = 1000
	defaultCaptureLimitKB    = 16
	defaultMinCaptureWidth   = 16
	defaultSignificance      = 25.0
	defaultDetectLevel       = 90.0
	defaultMatchSeconds      = 5.0
	defaultMismatchCount     = 3
	defaultFuzzFactor        = 5.0
	defaultWindowSeconds     = 60
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"

	logLevelEnv = "CREDITWATCH_LOG_LEVEL"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StoreDir: defaultStoreDir,
			DebugDir: defaultDebugDir,
			LogDir:   defaultLogDir,
		},
		Detector: Detector{
			Threads:           defaultThreads,
			CaptureIntervalMS: defaultCaptureIntervalMS,
			CaptureLimitKB:    defaultCaptureLimitKB,
			MinCaptureWidth:   defaultMinCaptureWidth,
			Significance:      defaultSignificance,
			DetectLevel:       defaultDetectLevel,
			MatchSeconds:      defaultMatchSeconds,
			MismatchCount:     defaultMismatchCount,
			FuzzFactor:        defaultFuzzFactor,
			WindowSeconds:     defaultWindowSeconds,
			ReuseOffsets:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
	}
}
