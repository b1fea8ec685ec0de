package types

import (
	"fmt"
)

type NodeID string

// Unbounded is the requested quantity meaning "take everything matching".
const Unbounded = -1

// Location identifies where a storage container is sited. Two locations are
// the same container iff context and coordinates are equal.
type Location struct {
	Context string
	X       int
	Y       int
	Z       int
}

func (l Location) String() string {
	return fmt.Sprintf("%s@%d,%d,%d", l.Context, l.X, l.Y, l.Z)
}

// Resource is a stack of a single resource type.
type Resource struct {
	Type     string
	Name     string
	Tags     map[string]string
	Quantity int
}

// WithQuantity returns a copy of r holding n units. Tags are shared.
func (r Resource) WithQuantity(n int) Resource {
	r.Quantity = n
	return r
}

func (r Resource) String() string {
	return fmt.Sprintf("%dx %s", r.Quantity, r.Name)
}

// Network is the ordered set of peers under a master. A *Network is the
// network's identity: two distinct pointers are different networks even when
// their peers are equal.
type Network struct {
	Peers []Node
}

// Node is a network participant.
type Node interface {
	ID() NodeID
	// Master returns nil when the node is not attached to a network.
	Master() Node
	// Network returns the peers reachable from this node's master.
	Network() *Network
	// Location returns the storage location the node is sited on, if any.
	Location() (Location, bool)
}

// Matcher decides whether a resource satisfies a request.
type Matcher interface {
	Matches(r Resource) bool
	String() string
}

// Request is a single count or extract run. It is shared by reference across
// every storage location visited so the bound is honored without a central
// loop recomputing remaining capacity.
type Request struct {
	Matcher   Matcher
	Requested int
	Found     int
	Extracted int
}

func NewRequest(m Matcher, requested int) *Request {
	return &Request{Matcher: m, Requested: requested}
}

// Bounded reports whether the request stops at Requested units.
func (r *Request) Bounded() bool {
	return r.Requested >= 0
}

// Remaining returns how many units may still be taken, or Unbounded.
func (r *Request) Remaining() int {
	if !r.Bounded() {
		return Unbounded
	}
	return max(0, r.Requested-r.Found)
}

// Satisfied reports whether a bounded request has found everything it asked for.
func (r *Request) Satisfied() bool {
	return r.Bounded() && r.Remaining() == 0
}

// Take clamps available to the remaining capacity and records the result as
// found. The caller records extraction separately.
func (r *Request) Take(available int) int {
	if available <= 0 {
		return 0
	}
	n := available
	if r.Bounded() {
		n = min(n, r.Remaining())
	}
	r.Found += n
	return n
}

// Interception is handed to an Interceptor during a request.
type Interception struct {
	Matcher   Matcher
	Requested int
	// Self is the node the interceptor is sited under.
	Self Node
	// Requester is the node the request was issued from.
	Requester Node
	// Results is the result list accumulated so far. Interceptors may rewrite it.
	Results   *[]Resource
	Locations []Location
	Request   *Request
	Extract   bool
}

// Interceptor is implemented by entities sited at a storage location that want
// to observe or rewrite requests passing through their network. Comparable
// implementations sited at several locations get a single post pass; others
// get one per location.
type Interceptor interface {
	// InterceptRequest runs before the location is counted or drained.
	InterceptRequest(ic *Interception) error
	// InterceptRequestLast runs once per interceptor after every location was visited.
	InterceptRequestLast(ic *Interception) error
}
