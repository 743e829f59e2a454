package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "pyshrink"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	stepsFlagName         = "steps"
	parallelFlagName      = "parallel"
	indentWidthFlagName   = "indent-width"
	renameSelfFlagName    = "rename-self"
	typeHintKindsFlagName = "typehint-kinds"
	excludeFlagName       = "exclude"
	docsOutFlagName       = "docstrings"
	diffFlagName          = "diff"
	summaryFlagName       = "summary"
	tuiFlagName           = "tui"
	globFlagName          = "glob"

	stepsConfigKey         = "compress.steps"
	parallelConfigKey      = "compress.parallel"
	indentWidthConfigKey   = "compress.indent_width"
	renameSelfConfigKey    = "compress.rename_self"
	typeHintKindsConfigKey = "compress.typehint_kinds"
	excludeConfigKey       = "compress.exclude"

	defaultParallel    = 4
	defaultIndentWidth = 1
	defaultRenameSelf  = false

	envPrefix = "PYSHRINK"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".pyshrink.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

// defaultSteps is the full pipeline in its canonical order. Docstrings go
// first so later renames never touch captured text, and the text transforms
// run last over tree-rendered output.
var defaultSteps = []string{"docstrings", "rename", "typehints", "reindent", "blanklines"}

// defaultTypeHintKinds enables every hint category the removal step knows.
var defaultTypeHintKinds = []string{"return", "arg", "variable"}

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(stepsConfigKey, defaultSteps)
	viper.SetDefault(parallelConfigKey, defaultParallel)
	viper.SetDefault(indentWidthConfigKey, defaultIndentWidth)
	viper.SetDefault(renameSelfConfigKey, defaultRenameSelf)
	viper.SetDefault(typeHintKindsConfigKey, defaultTypeHintKinds)
	viper.SetDefault(excludeConfigKey, []string{})

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
