/*
Package dsl provides a fluent builder for authoring flows in Go.

	b := dsl.New("welcome").Name("Welcome Flow")
	b.Add("start").Start().Go("greet")
	b.Add("greet").Message("Hi {name}!").Go("menu")
	b.Add("menu").Decision("What do you need?").
		Branch("Order Status", "lookup").
		Branch("Agent", "handoff")
	b.Add("lookup").Action("checkOrderStatus").Go("done")
	b.Add("handoff").Action("transferToAgent").Go("done")
	b.Add("done").End()

	validated, err := b.Validate()
*/
package dsl
