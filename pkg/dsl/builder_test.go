package dsl_test

import (
	"testing"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_OrderStatusFlow(t *testing.T) {
	b := dsl.New("orders").Name("Order Status Flow")
	b.Add("start").Start().Go("ask").At(100, 100)
	b.Add("ask").Message("Please enter your order number:").Go("lookup")
	b.Add("lookup").Action("checkOrderStatus").
		Branch("Found", "found").
		Otherwise("missing")
	b.Add("found").Message("Your order is {status}.").Go("end")
	b.Add("missing").Message("Sorry, I couldn't find your order.").Go("end")
	b.Add("end").End()

	def := b.Build()
	require.Len(t, def.Nodes, 6)
	assert.Equal(t, "Order Status Flow", def.Name)
	assert.Equal(t, "start", def.Nodes[0].ID, "insertion order is kept")
	assert.Equal(t, &domain.Position{X: 100, Y: 100}, def.Nodes[0].Position)

	lookup, ok := def.Node("lookup")
	require.True(t, ok)
	assert.Equal(t, domain.TransitionBranching, lookup.Next.Kind())
	assert.Equal(t, []string{"Found", domain.WildcardBranch}, lookup.Next.Labels())

	v, err := b.Validate()
	require.NoError(t, err)
	assert.Equal(t, "start", v.StartNodeID())
	assert.Equal(t, []string{"status"}, v.Variables())
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := dsl.New("f")
	first := b.Add("n").Message("one")
	second := b.Add("n")
	assert.Same(t, first, second)
	assert.Len(t, b.Build().Nodes, 1)
}

func TestBuilder_ChainedAddsRegisterOnParent(t *testing.T) {
	b := dsl.New("hello")
	b.Add("start").Start().Go("ask").
		Add("ask").Decision("Proceed?").
		Branch("yes", "end").
		Add("end").End()

	def := b.Build()
	require.Len(t, def.Nodes, 3)
	assert.Equal(t, "hello", def.ID)

	_, err := b.Validate()
	require.NoError(t, err)
}

func TestBuilder_GoReplacesBranches(t *testing.T) {
	b := dsl.New("f")
	node := b.Add("a").Action("x").Branch("ok", "b").Go("c").Build()
	assert.Equal(t, domain.TransitionDirect, node.Next.Kind())
	assert.Equal(t, "c", node.Next.Target())
}

func TestBuilder_MustValidatePanicsOnDefects(t *testing.T) {
	b := dsl.New("broken")
	b.Add("end").End()
	assert.Panics(t, func() { b.MustValidate() })
}
