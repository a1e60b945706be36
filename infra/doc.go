// Package infra contains technical adapters: the clearing-house HTTP
// client, the MQTT change feed, outcome sinks, the outcome journal and
// fault reporting. These packages depend only on the interfaces defined in
// the core packages.
package infra
