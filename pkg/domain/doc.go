/*
Package domain contains the core domain models of the Switchboard flow engine.

It defines the chatbot flow graph and the runtime snapshot of a conversation
walking that graph. The package is kept pure and free of I/O or persistence
concerns, following Hexagonal Architecture principles.

# Key Entities

  - FlowDefinition: a named, versioned graph of FlowNodes.
  - FlowNode: one step of a flow (start, message, decision, action, end).
  - Transition: the tagged rule selecting the next node (Direct, Branching or None).
  - Session: the live state of one conversation executing a flow.
  - InboundEvent / OutboundMessage: what the messaging transport feeds in and gets back.
*/
package domain
