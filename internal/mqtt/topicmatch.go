package mqtt

import "strings"

// TopicMatch reports whether topic matches filter under MQTT 3.1.1's
// wildcard rules (`+` matches exactly one level, `#` matches the rest of
// the levels including zero). Grounded on iotcored's
// iotcored_mqtt_topic_filter_match, which defers to coreMQTT's
// MQTT_MatchTopic; this is a from-scratch Go implementation of the same
// wildcard semantics since no coreMQTT port exists in this runtime.
func TopicMatch(filter, topic string) bool {
	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	// Per the spec, a topic beginning with "$" is never matched by a
	// filter whose first level is a wildcard, to keep broker-internal
	// topics ($SYS/...) out of wildcard subscriptions.
	if len(topicParts) > 0 && strings.HasPrefix(topicParts[0], "$") {
		if len(filterParts) > 0 && (filterParts[0] == "+" || filterParts[0] == "#") {
			return false
		}
	}

	for i, f := range filterParts {
		if f == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if f == "+" {
			continue
		}
		if f != topicParts[i] {
			return false
		}
	}
	return len(filterParts) == len(topicParts)
}
