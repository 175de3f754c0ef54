/*
Package ports defines the driven ports (interfaces) of the Switchboard engine.

These interfaces decouple the core from external implementations, allowing
the engine to work with various storage backends, action providers and
flow sources.

# Key Interfaces

  - ActionProvider: performs the named side-effect of an action node.
  - SessionStore: persists conversation sessions with optimistic concurrency.
  - DistributedLocker: coordinates per-conversation access across replicas.
  - FlowSource: loads draft flow definitions (files, Loam repositories).
*/
package ports
