package utils

import (
	"encoding/json"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

func SerializeToJSON(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("[KafkaUtils] Failed to serialize JSON",
			slog.String("error", err.Error()))
		return nil, err
	}
	return data, nil
}

// Headers turns string pairs into message headers in key order of pairs.
func Headers(pairs ...string) []kafka.Header {
	headers := make([]kafka.Header, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		headers = append(headers, kafka.Header{Key: pairs[i], Value: []byte(pairs[i+1])})
	}
	return headers
}
