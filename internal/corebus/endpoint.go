package corebus

import (
	"path/filepath"
	"strings"
)

// DefaultSocketDir is the well-known directory core-bus endpoints are
// rooted at when no override is configured, per spec.md §4.2's "a
// process-local rendezvous... conventionally a filesystem socket under a
// well-known directory."
const DefaultSocketDir = "/run/corert"

// EndpointSocketPath maps an opaque endpoint name (e.g. "aws_iot_mqtt",
// "gg_health", "/aws/ggl/ggconfigd") onto a socket path under dir. Leading
// slashes in the endpoint name are stripped so an endpoint that already
// looks like an absolute path (ggconfigd's) nests under dir rather than
// escaping it.
func EndpointSocketPath(dir, endpoint string) string {
	name := strings.TrimPrefix(endpoint, "/")
	return filepath.Join(dir, name+".sock")
}
