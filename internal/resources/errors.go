package resources

import "errors"

var (
	// ErrConfiguration is returned when a resource spec cannot be turned into buffers.
	ErrConfiguration = errors.New("invalid resource configuration")
	// ErrUnknownKind is returned when a resource name is not one of cpu, mem, io or network.
	ErrUnknownKind = errors.New("unknown resource kind")
	// ErrMalformedSnapshot is returned to the transport when an inbound snapshot is unusable.
	ErrMalformedSnapshot = errors.New("malformed resource snapshot")
)
