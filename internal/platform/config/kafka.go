package config

// KafkaConfig configures the activity event producer. No brokers means events are discarded.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

func LoadKafkaConfigFromEnv() KafkaConfig {
	return KafkaConfig{
		Brokers:  envList("KAFKA_BROKERS"),
		Topic:    envString("ACTIVITY_EVENTS_TOPIC", "activity-events"),
		ClientID: envString("KAFKA_CLIENT_ID", "activity-service"),
	}
}
