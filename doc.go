/*
Package switchboard runs automated chatbot conversations described as flow graphs.

A flow is a directed graph of typed nodes (start, message, decision, action,
end). Authors draft flows, the validator turns drafts into immutable
validated flows, and the registry versions them and keeps a single flow
active. For every inbound event the engine advances the conversation's
session through the graph, calling external action providers where the
flow says so, and returns the rendered outbound messages in order.

# Usage

	b := dsl.New("welcome").Name("Welcome Flow")
	b.Add("start").Start().Go("hello")
	b.Add("hello").Message("Hello {name}! How can I help?").Go("menu")
	b.Add("menu").Decision("Choose an option").
		Branch("Orders", "orders").
		Branch("Agent", "agent")
	b.Add("orders").Action("checkOrderStatus").Go("end")
	b.Add("agent").Action("transferToAgent").Go("end")
	b.Add("end").End()

	eng := switchboard.New(switchboard.WithProvider(myProvider))
	id, _, err := eng.Publish(b.Build())
	if err != nil {
		log.Fatal(err) // *flow.ValidationError lists every defect
	}
	_ = eng.Activate(id)

	msgs, sess, err := eng.Handle(ctx, domain.UserText("conv-1", "hi"))

# Concurrency

Events for different conversations run fully in parallel. Events for the
same conversation are serialized by a per-conversation lock (optionally a
distributed one, see pkg/adapters/redis) and by the session store's
optimistic step check, so at most one step runs per conversation at a time.
*/
package switchboard
