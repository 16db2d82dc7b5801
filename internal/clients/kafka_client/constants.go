package kafka_client

import "time"

const (
	KAFKA_TOPIC_ANALYSIS_RESULTS = "newsmood.analysis"  // one message per annotated article
	KAFKA_TOPIC_ANALYSIS_SUMMARY = "newsmood.summaries" // corpus statistics, one message per run
)

const (
	MAX_RETRIES   = 3
	RETRY_DELAY   = 2 * time.Second
	FLUSH_TIMEOUT = 5 * time.Second
)
