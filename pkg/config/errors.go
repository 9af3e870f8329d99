package config

import "errors"

var (
	// ErrInvalidValue is returned when a property cannot be parsed or is out of range
	ErrInvalidValue = errors.New("invalid property value")
	// ErrUnknownEngineType is returned for an unrecognised renderengine.type
	ErrUnknownEngineType = errors.New("unknown render engine type")
	// ErrUnknownSamplerType is returned for an unrecognised sampler.type
	ErrUnknownSamplerType = errors.New("unknown sampler type")
	// ErrIncompatibleSampler is returned when the engine cannot drive the selected sampler
	ErrIncompatibleSampler = errors.New("sampler not supported by render engine")
)
