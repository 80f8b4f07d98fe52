package config

// TracingConfig enables OTLP/HTTP span export when an endpoint is set. The
// exporter reads the remaining OTEL_EXPORTER_OTLP_* variables itself.
type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

func (c TracingConfig) Enabled() bool { return c.Endpoint != "" }

func LoadTracingConfigFromEnv(defaultService string) TracingConfig {
	endpoint := envString("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	if endpoint == "" {
		endpoint = envString("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	}
	return TracingConfig{
		Endpoint:    endpoint,
		ServiceName: envString("OTEL_SERVICE_NAME", defaultService),
	}
}
