package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverGroupSuccess(t *testing.T) {
	t.Parallel()

	crm := &fakeCRM{}
	led := newMemLedger()
	d := NewDispatcher(crm, led, DispatcherConfig{ActivityType: "vf___venda_feita"})

	g := Group{DealID: 42, Sales: twoSales()}
	require.NoError(t, d.Deliver(context.Background(), g))

	require.Len(t, crm.activities, 2)
	assert.Equal(t, 42, crm.activities[0].DealID)
	assert.Equal(t, "2025-01-15", crm.activities[0].DueDate)
	assert.Equal(t, "vf___venda_feita", crm.activities[0].Type)
	assert.Equal(t, "Venda - Segurado 1", crm.activities[0].Subject)
	assert.Equal(t, 1, crm.activities[0].Done)

	// Whole group committed as one batch.
	require.Len(t, led.batches, 1)
	assert.Equal(t, []string{"A1", "A2"}, led.batches[0])
	assert.True(t, led.Contains("A1"))
	assert.True(t, led.Contains("A2"))
	assert.Empty(t, crm.products)
}

// Ledger durability: when the 2nd of 3 deliveries fails, none of the
// group's ids reach the ledger and the next run re-attempts all three.
func TestDeliverMidGroupFailure(t *testing.T) {
	t.Parallel()

	crm := &fakeCRM{failAt: 2}
	led := newMemLedger()
	d := NewDispatcher(crm, led, DispatcherConfig{ActivityType: "vf___venda_feita"})

	g := Group{DealID: 42, Sales: threeSales()}
	err := d.Deliver(context.Background(), g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proposal A2")

	// First sale was pushed, third never attempted.
	assert.Len(t, crm.activities, 1)
	// Nothing committed.
	assert.Empty(t, led.batches)
	assert.False(t, led.Contains("A1"))
	assert.False(t, led.Contains("A2"))
	assert.False(t, led.Contains("A3"))
}

func TestDeliverCommitPerSale(t *testing.T) {
	t.Parallel()

	crm := &fakeCRM{failAt: 2}
	led := newMemLedger()
	d := NewDispatcher(crm, led, DispatcherConfig{
		ActivityType:  "vf___venda_feita",
		CommitPerSale: true,
	})

	g := Group{DealID: 42, Sales: threeSales()}
	err := d.Deliver(context.Background(), g)
	require.Error(t, err)

	// The succeeded prefix is committed and will not be redelivered.
	require.Len(t, led.batches, 1)
	assert.Equal(t, []string{"A1"}, led.batches[0])
	assert.True(t, led.Contains("A1"))
	assert.False(t, led.Contains("A2"))
}

func TestDeliverPushProducts(t *testing.T) {
	t.Parallel()

	crm := &fakeCRM{}
	led := newMemLedger()
	d := NewDispatcher(crm, led, DispatcherConfig{
		ActivityType: "vf___venda_feita",
		PushProducts: true,
	})

	g := Group{DealID: 42, Sales: twoSales()}
	require.NoError(t, d.Deliver(context.Background(), g))

	require.Len(t, crm.products, 2)
	assert.Equal(t, 3, crm.products[0].ProductID)
	assert.InDelta(t, 150.50, crm.products[0].ItemPrice, 0.001)
	assert.Equal(t, 1, crm.products[0].Quantity)
	assert.Len(t, crm.activities, 2)
}

// A product attach failure stops the group before its activity is logged.
func TestDeliverProductFailureStopsGroup(t *testing.T) {
	t.Parallel()

	crm := &fakeCRM{productErr: errActivityRejected}
	led := newMemLedger()
	d := NewDispatcher(crm, led, DispatcherConfig{
		ActivityType: "vf___venda_feita",
		PushProducts: true,
	})

	g := Group{DealID: 42, Sales: twoSales()}
	require.Error(t, d.Deliver(context.Background(), g))
	assert.Empty(t, crm.activities)
	assert.Empty(t, led.batches)
}

// A ledger commit failure after full delivery surfaces as a group error;
// the next run redelivers, which is the accepted trade-off.
func TestDeliverLedgerCommitFailure(t *testing.T) {
	t.Parallel()

	crm := &fakeCRM{}
	led := newMemLedger()
	led.appendErr = errActivityRejected
	d := NewDispatcher(crm, led, DispatcherConfig{ActivityType: "vf___venda_feita"})

	g := Group{DealID: 42, Sales: twoSales()}
	err := d.Deliver(context.Background(), g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit group")
	assert.Len(t, crm.activities, 2)
}
