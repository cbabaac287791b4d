package web

import (
	"errors"
	"fmt"
)

// CropState is a step of the metadata image crop flow
type CropState int

const (
	CropIdle CropState = iota
	CropCropping
	CropQueued
)

func (s CropState) String() string {
	switch s {
	case CropIdle:
		return "idle"
	case CropCropping:
		return "cropping"
	case CropQueued:
		return "queued"
	}
	return fmt.Sprintf("CropState(%d)", int(s))
}

// ErrCropState is returned for a transition the current state does not allow
var ErrCropState = errors.New("invalid crop transition")

// CropFlow tracks a metadata image from selection to the cropped blob that
// will be uploaded. Only the queued blob is ever uploaded; the original file
// is discarded.
type CropFlow struct {
	state    CropState
	filename string
	source   []byte
	queued   []byte
}

func (f *CropFlow) State() CropState {
	return f.state
}

// Select picks a new source image. A previously queued blob is replaced.
func (f *CropFlow) Select(filename string, source []byte) error {
	if f.state == CropCropping {
		return fmt.Errorf("%w: select while %s", ErrCropState, f.state)
	}
	f.state = CropCropping
	f.filename = filename
	f.source = source
	f.queued = nil
	return nil
}

// Source returns the image being cropped
func (f *CropFlow) Source() (string, []byte) {
	return f.filename, f.source
}

// Complete queues the cropped blob
func (f *CropFlow) Complete(blob []byte) error {
	if f.state != CropCropping {
		return fmt.Errorf("%w: complete while %s", ErrCropState, f.state)
	}
	f.state = CropQueued
	f.source = nil
	f.queued = blob
	return nil
}

// Cancel abandons the crop and discards the pending file
func (f *CropFlow) Cancel() {
	if f.state != CropCropping {
		return
	}
	f.state = CropIdle
	f.filename = ""
	f.source = nil
}

// Queued returns the blob waiting to be uploaded
func (f *CropFlow) Queued() (string, []byte, bool) {
	if f.state != CropQueued {
		return "", nil, false
	}
	return f.filename, f.queued, true
}
