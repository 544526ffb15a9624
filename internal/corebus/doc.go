// Package corebus implements the core-bus RPC transport: a filesystem-socket
// rendezvous point over which daemons publish named methods and other
// daemons call, notify, or subscribe to them. It is grounded on
// ggl-lib's server.h/client.h pluggable RPC interface (ggl_listen,
// ggl_receive_callback, ggl_respond, ggl_connect, ggl_call, ggl_notify) and
// on the topic-subscription shape of plugin_api's ggapiSubscribeToTopic.
//
// Each server socket is one endpoint (e.g. "aws_iot_mqtt", "gg_health"), and
// methods on it are plain names matched byte-exactly, e.g. "publish" or
// "get_status". A call expects exactly one response; a notify expects none; a subscribe
// call expects an unbounded stream of responses until either side closes it.
package corebus
