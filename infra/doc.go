// Package infra groups the technical adapters: the MQTT transport, metric
// exporters and the zerolog logger. Subpackages depend on core interfaces
// only, never on each other's concrete types.
package infra
