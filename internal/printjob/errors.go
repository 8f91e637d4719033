package printjob

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a job rejected before any sender was invoked.
	ErrValidation = errors.New("validation failed")
	// ErrDelivery marks a failed OS, network or process interaction in a sender.
	ErrDelivery = errors.New("delivery failed")
	// ErrUnreachablePeer marks a network-level failure talking to another agent.
	ErrUnreachablePeer = errors.New("peer unreachable")
	// ErrPeerRejected marks a peer that answered with a non-success status.
	ErrPeerRejected = errors.New("peer rejected job")
	// ErrUnsupportedKind marks a print type with no known route.
	ErrUnsupportedKind = errors.New("unsupported print type")
)

func missingField(field string) error {
	return fmt.Errorf("%w: %s is required", ErrValidation, field)
}
