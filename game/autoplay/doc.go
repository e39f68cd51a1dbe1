// Package autoplay plays games without a human: a Planner scores every
// placement the falling piece can reach (rotate in place, shift, drop) by the
// board it leaves behind, and Play feeds the winning command sequence to an
// engine piece after piece.
//
// The planner only uses moves the engine accepts, so its commands can equally
// be sent through the REST API's bulk command endpoint.
package autoplay
