package engine

import (
	"ObstacleVisServer/planning"
	"errors"
)

const UNREGISTERED = 0x0001
const REGISTERED = 0x0002
const IDLE = 0x0003
const BUSY = 0x0004

var (
	ErrNotRegistered = errors.New("annotator not registered")
	ErrNotConfigured = errors.New("annotator not configured")
	ErrBusy          = errors.New("annotator is busy")
)

// Report is the payload of a successful Annotate call.
type Report struct {
	Detections  planning.Summary `json:"detections"`
	GroundTruth planning.Summary `json:"groundTruth"`
}

func stateName(state int) string {
	switch state {
	case UNREGISTERED:
		return "UNREGISTERED"
	case REGISTERED:
		return "REGISTERED"
	case IDLE:
		return "IDLE"
	case BUSY:
		return "BUSY"
	}
	return "UNKNOWN"
}
