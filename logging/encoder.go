package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CusTimeEncoder creates a custom time encoder that adds the prefix and formats the time.
func CusTimeEncoder(config Config) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(config.Prefix + t.Format(config.TimeFormat))
	}
}

// GetEncoder returns a zapcore.Encoder based on the config format.
func GetEncoder(config Config) zapcore.Encoder {
	encoderConfig := getEncoderConfig(config)
	if config.Format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func getEncoderConfig(config Config) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    config.ZapEncodeLevel(),
		EncodeTime:     CusTimeEncoder(config),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// exactLevel enables only the given level, so each file receives one level.
func exactLevel(level zapcore.Level) zapcore.LevelEnabler {
	return zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l == level
	})
}

// getZapCores builds the terminal core and, when a director is configured,
// one file core per level at or above config.Level.
func getZapCores(config Config, terminal zapcore.WriteSyncer) []zapcore.Core {
	minLevel := config.TransportLevel()
	cores := make([]zapcore.Core, 0, 6)

	if !config.Quiet && terminal != nil {
		cores = append(cores, zapcore.NewCore(GetEncoder(config), terminal, minLevel))
	}

	if config.Director != "" {
		for level := minLevel; level <= zapcore.FatalLevel; level++ {
			writer := zapcore.AddSync(newLevelWriterWithRegistry(config, level.String()))
			cores = append(cores, zapcore.NewCore(GetEncoder(config), writer, exactLevel(level)))
		}
	}
	return cores
}
