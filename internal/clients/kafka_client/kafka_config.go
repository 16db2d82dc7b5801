package kafka_client

type KafkaConfig struct {
	Broker          string
	ResultsTopic    string
	SummaryTopic    string
	TransactionalID string
}

// WithDefaults fills unset topics and the transactional id.
func (c KafkaConfig) WithDefaults() KafkaConfig {
	if c.ResultsTopic == "" {
		c.ResultsTopic = KAFKA_TOPIC_ANALYSIS_RESULTS
	}
	if c.SummaryTopic == "" {
		c.SummaryTopic = KAFKA_TOPIC_ANALYSIS_SUMMARY
	}
	if c.TransactionalID == "" {
		c.TransactionalID = "newsmood-producer-1"
	}
	return c
}
