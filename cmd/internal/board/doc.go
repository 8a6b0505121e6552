// Package board implements the task board core: the task records, the
// status workflow engine that decides which transitions are legal for which
// actor, and the access-control policy gating every non-transition mutation.
//
// The workflow engine and the policy are pure decision functions. The Service
// is the only component that consults them, and it does so before every write
// through the store.
package board
