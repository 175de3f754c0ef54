/*
Package session implements conversation session management.

The Manager hands out the per-conversation mutual-exclusion token: a local,
reference-counted mutex optionally backed by a distributed lock, so that at
most one step runs for a conversation at a time, while different
conversations proceed fully in parallel. Lost updates that slip past the
token (for example duplicate deliveries across replicas without a
distributed locker) are caught by the store's optimistic step check.
*/
package session
