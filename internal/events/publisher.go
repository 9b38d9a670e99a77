package events

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/gesture.report/internal/vision/pipeline"
)

// PersonPublisher adapts a Publisher into the pipeline's publish sink,
// encoding each frame result as JSON on the sensor's persons subject.
type PersonPublisher struct {
	pub Publisher
}

// NewPersonPublisher wraps pub.
func NewPersonPublisher(pub Publisher) *PersonPublisher {
	return &PersonPublisher{pub: pub}
}

// PublishPersons implements pipeline.PublishSink.
func (p *PersonPublisher) PublishPersons(res *pipeline.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding person records: %w", err)
	}
	return p.pub.Publish(PersonsSubject(res.SensorID), payload)
}
