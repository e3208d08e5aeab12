package pipeline

import (
	"errors"

	"github.com/franckalain/caloriesense/internal/imaging"
)

// Fault tells who is to blame for a failed operation
type Fault int

const (
	ServerFault Fault = iota
	ClientFault
)

func (f Fault) String() string {
	if f == ClientFault {
		return "client"
	}
	return "server"
}

// ErrBadRequest marks malformed input rejected at the transport boundary.
var ErrBadRequest = errors.New("invalid request")

// Classify maps an error returned by Service to a fault. Anything not known
// to be caused by the caller is a server fault.
func Classify(err error) Fault {
	switch {
	case errors.Is(err, imaging.ErrUnsupportedContentType),
		errors.Is(err, imaging.ErrDecode),
		errors.Is(err, ErrEmptyFoodName),
		errors.Is(err, ErrBadRequest):
		return ClientFault
	default:
		return ServerFault
	}
}
