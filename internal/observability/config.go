package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/ridepay/internal/config"
)

const (
	defaultServiceName   = "ridepay"
	defaultSamplingRatio = 0.1
)

// Config is the telemetry view of the process: who is logging, where spans
// go and how loud it is.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	// Mode is the APP_MODE this process runs in. Split deployments report
	// as "<service>-api" and "<service>-scheduler".
	Mode string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	out := Config{
		ServiceName: strings.TrimSpace(cfg.AppName),
		Environment: envOr("DEPLOYMENT_ENV", cfg.Environment),
		Version:     envOr("SERVICE_VERSION", cfg.AppVersion),
		Mode:        strings.TrimSpace(cfg.Mode),
		LogLevel:    strings.ToLower(envOr("LOG_LEVEL", "info")),

		OtelEnabled:          envBool("OTEL_ENABLED", cfg.IsProduction()),
		OtelExporterEndpoint: envOr("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint),
		OtelExporterProtocol: strings.ToLower(envOr("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", envOr("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
		OtelSamplingRatio:    envFloat("OTEL_SAMPLING_RATIO", defaultSamplingRatio),
	}

	if out.ServiceName == "" {
		out.ServiceName = defaultServiceName
	}
	if out.Mode != "" && out.Mode != config.ModeAll {
		out.ServiceName += "-" + out.Mode
	}
	if out.OtelSamplingRatio < 0 || out.OtelSamplingRatio > 1 {
		out.OtelSamplingRatio = defaultSamplingRatio
	}

	// Local runs read better as console lines.
	defaultFormat := "json"
	if isDevEnv(out.Environment) {
		defaultFormat = "console"
	}
	out.LogFormat = strings.ToLower(envOr("LOG_FORMAT", defaultFormat))

	return out
}

func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	return isDevEnv(c.Environment)
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func envOr(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(def)
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(envOr(key, "")) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func envFloat(key string, def float64) float64 {
	parsed, err := strconv.ParseFloat(envOr(key, ""), 64)
	if err != nil {
		return def
	}
	return parsed
}
