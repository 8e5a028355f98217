// File: runtime/ownership.go
// Author: momentics <momentics@gmail.com>
//
// The two-phase ownership-transfer protocol from the design notes this
// runtime was built from: TransferOwnership(timeout) releases the transport
// and returns a handle to the caller; ReceiveOwnership(handle), called on
// a *different* Runtime instance, adopts it. There is no ready
// acknowledgement from the new owner. A bounded deadline is carried
// on the handle itself rather than enforced by a background timer goroutine
// reaching into either runtime's private state; every mutation still
// happens only on the owning dispatch loop, matching the single-writer
// rule the rest of this package follows.

package runtime

import (
	"time"

	"github.com/momentics/wsconnect/api"
)

// OwnershipHandle is the transferable capability: the live transport plus
// its transport-local state, and the deadline after which both
// ReceiveOwnership and ReclaimOwnership reject it. Nothing reclaims an
// expired handle automatically.
type OwnershipHandle struct {
	transport transport
	state     *api.ConnectionState
	deadline  time.Time
}

// Expired reports whether handle's transfer deadline has passed.
func (h *OwnershipHandle) Expired() bool {
	return time.Now().After(h.deadline)
}

type transferOutcome struct {
	handle *OwnershipHandle
	err    error
}

// TransferOwnership releases this runtime's claim on its transport and
// returns a handle a new owner can adopt via ReceiveOwnership within
// timeout. This runtime stops reading transport events immediately; if the
// handle is never claimed, the caller should pass it back to
// ReclaimOwnership before timeout elapses.
func (r *Runtime) TransferOwnership(timeout time.Duration) (*OwnershipHandle, error) {
	result := make(chan transferOutcome, 1)
	r.commands <- command{kind: cmdTransferOwnership, transferTimeout: timeout, transferResult: result}
	out := <-result
	return out.handle, out.err
}

// ReceiveOwnership adopts a handle produced by another Runtime's
// TransferOwnership, provided its deadline has not passed.
func (r *Runtime) ReceiveOwnership(handle *OwnershipHandle) error {
	result := make(chan error, 1)
	r.commands <- command{kind: cmdReceiveOwnership, handle: handle, errResult: result}
	return <-result
}

// ReclaimOwnership re-adopts a handle produced via TransferOwnership,
// provided the deadline has not passed. It runs the same check as
// ReceiveOwnership: it does not verify which Runtime produced the handle
// or whether another Runtime has already adopted it.
func (r *Runtime) ReclaimOwnership(handle *OwnershipHandle) error {
	result := make(chan error, 1)
	r.commands <- command{kind: cmdReceiveOwnership, handle: handle, errResult: result}
	return <-result
}
