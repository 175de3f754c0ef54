// Package runtime implements the flow state machine: it evaluates nodes for
// one inbound event at a time and never touches storage.
package runtime
