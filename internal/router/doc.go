// Package router is the control-channel engine of the diagnostics router.
//
// Ownership boundary:
// - inbound control record dispatch per peripheral
// - the command routing table built from REGISTER/DEREGISTER
// - feature negotiation and the mask/mode burst that follows it
// - diag-source id assignment
// - hardware-acceleration arbitration and its PASS_THRU announcements
//
// A Router is the single owner of that state. Every exported method takes
// the router lock, so callers on different goroutines are serialized the way
// a single event loop would serialize them. Outbound records are queued per
// peripheral and drained by the transport.
package router
