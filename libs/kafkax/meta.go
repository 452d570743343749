package kafkax

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

// Header keys carried on every portal event.
const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
	HeaderRequestID = "request_id"
)

// MetaHeaders builds the canonical metadata headers, skipping empty values.
func MetaHeaders(eventID, eventType, requestID string) []kafka.Header {
	var headers []kafka.Header
	for _, kv := range [][2]string{
		{HeaderEventID, eventID},
		{HeaderEventType, eventType},
		{HeaderRequestID, requestID},
	} {
		if kv[1] != "" {
			headers = append(headers, kafka.Header{Key: kv[0], Value: []byte(kv[1])})
		}
	}
	return headers
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
