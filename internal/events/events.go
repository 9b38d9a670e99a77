// Package events carries the service's pub/sub surface: synchronized frame
// bundles arrive on NATS, person records leave on NATS. The transport, not
// this service, is responsible for timestamp-aligning the RGB/depth/info
// triples inside a bundle.
package events

import "fmt"

// Subject prefixes. The full subject carries the sensor id as its last
// token, so one broker fans out any number of sensors.
const (
	SubjectFramesPrefix  = "gesture.frames"
	SubjectPersonsPrefix = "gesture.persons"
)

// FramesSubject returns the frame-bundle subject for a sensor.
func FramesSubject(sensorID string) string {
	return fmt.Sprintf("%s.%s", SubjectFramesPrefix, sensorID)
}

// PersonsSubject returns the person-record subject for a sensor.
func PersonsSubject(sensorID string) string {
	return fmt.Sprintf("%s.%s", SubjectPersonsPrefix, sensorID)
}

// Publisher is the interface for emitting raw payloads to a subject.
type Publisher interface {
	Publish(subject string, payload []byte) error
	Close() error
}
