// Package dispatch holds the allocation core: the capacity checker, the
// pilot dispatcher and the shuttle manifest filler.  It talks to the
// database only through Store and Tx and to downstream collaborators only
// through Publisher.
package dispatch
