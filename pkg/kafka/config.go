package kafka

import (
	"time"
)

// Config holds Kafka configuration
type Config struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string

	// Producer settings
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack

	// Consumer settings
	MinBytes      int
	MaxBytes      int
	MaxWait       time.Duration
	CommitTimeout time.Duration

	// TLS settings
	TLSEnabled bool
	TLSCert    string
	TLSKey     string
	TLSCA      string

	// SASL settings
	SASLEnabled   bool
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:       []string{"localhost:9092"},
		ConsumerGroup: "bakery-default-group",
		ClientID:      "bakery-client",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1, // All replicas

		MinBytes:      1,
		MaxBytes:      10e6, // 10MB
		MaxWait:       500 * time.Millisecond,
		CommitTimeout: 5 * time.Second,

		TLSEnabled:  false,
		SASLEnabled: false,
	}
}

// Topics contains the bakery platform Kafka topic names
var Topics = struct {
	// Inbound topics
	DemandInbound string

	// Domain event topics
	ProductionEvents string
	ScheduleEvents   string
	QualityEvents    string
	InventoryEvents  string
	RecipeEvents     string

	// Live monitoring topic
	Monitoring string

	// Notification topic
	Notifications string
}{
	DemandInbound: "bakery.demand.inbound",

	ProductionEvents: "bakery.production.events",
	ScheduleEvents:   "bakery.schedules.events",
	QualityEvents:    "bakery.quality.events",
	InventoryEvents:  "bakery.inventory.events",
	RecipeEvents:     "bakery.recipes.events",

	Monitoring: "bakery.production.monitoring",

	Notifications: "bakery.production.notifications",
}

// TopicConfig holds configuration for a Kafka topic
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	RetentionMs       int64
}

// DefaultTopicConfigs returns default configurations for bakery topics
func DefaultTopicConfigs() []TopicConfig {
	const week = 7 * 24 * 60 * 60 * 1000
	return []TopicConfig{
		{Name: Topics.DemandInbound, Partitions: 6, ReplicationFactor: 3, RetentionMs: week},
		{Name: Topics.ProductionEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: week},
		{Name: Topics.ScheduleEvents, Partitions: 3, ReplicationFactor: 3, RetentionMs: week},
		{Name: Topics.QualityEvents, Partitions: 3, ReplicationFactor: 3, RetentionMs: 90 * 24 * 60 * 60 * 1000}, // 90 days for audit
		{Name: Topics.InventoryEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: week},
		{Name: Topics.RecipeEvents, Partitions: 3, ReplicationFactor: 3, RetentionMs: week},
		{Name: Topics.Monitoring, Partitions: 6, ReplicationFactor: 3, RetentionMs: 24 * 60 * 60 * 1000}, // 1 day, high churn
		{Name: Topics.Notifications, Partitions: 3, ReplicationFactor: 3, RetentionMs: week},
	}
}
