// Package publish streams pipeline output to an MQTT broker as JSON.
//
// Every record is published under <prefix>/<component>/<kind>, where
// kind is one of tracks, multi-peak-tracks, events or acquisitions, and
// carries the run id so subscribers can separate concurrent runs.
package publish
