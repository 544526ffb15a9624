package mqtt

import "testing"

func TestTopicMatch(t *testing.T) {
	cases := []struct {
		filter, topic string
		want          bool
	}{
		{"a/b/c", "a/b/c", true},
		{"a/b/c", "a/b/d", false},
		{"a/+/c", "a/x/c", true},
		{"a/+/c", "a/x/y/c", false},
		{"a/#", "a", true},
		{"a/#", "a/b/c/d", true},
		{"#", "anything/at/all", true},
		{"+/+", "a/b", true},
		{"+/+", "a/b/c", false},
		{"$aws/things/foo", "$aws/things/foo", true},
		{"+/things/foo", "$aws/things/foo", false},
		{"#", "$aws/things/foo", false},
		{"$aws/#", "$aws/things/foo", true},
	}
	for _, c := range cases {
		if got := TopicMatch(c.filter, c.topic); got != c.want {
			t.Errorf("TopicMatch(%q, %q) = %v, want %v", c.filter, c.topic, got, c.want)
		}
	}
}
