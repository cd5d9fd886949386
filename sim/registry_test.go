package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newMockEndpoint(ctrl *gomock.Controller, id UnitID) *MockEndpoint {
	ep := NewMockEndpoint(ctrl)
	ep.EXPECT().ID().Return(id).AnyTimes()
	return ep
}

func TestRoutingTable_Send_DeliversToRegisteredEndpoint(t *testing.T) {
	// GIVEN a frozen table with one endpoint
	ctrl := gomock.NewController(t)
	ep := newMockEndpoint(ctrl, 2000)
	table := NewRoutingTable()
	require.NoError(t, table.Register(ep))
	table.Freeze()
	msg := NewMessage(1)

	// THEN Accept is called exactly once with the message
	ep.EXPECT().Accept(gomock.Any(), msg).Return(nil).Times(1)

	// WHEN a message is sent to its id
	assert.NoError(t, table.Send(context.Background(), 2000, msg))
}

func TestRoutingTable_Send_PropagatesRefusal(t *testing.T) {
	ctrl := gomock.NewController(t)
	ep := newMockEndpoint(ctrl, 2000)
	table := NewRoutingTable()
	require.NoError(t, table.Register(ep))
	table.Freeze()

	ep.EXPECT().Accept(gomock.Any(), gomock.Any()).Return(ErrQueueFull)

	assert.ErrorIs(t, table.Send(context.Background(), 2000, NewMessage(1)), ErrQueueFull)
}

func TestRoutingTable_Send_UnknownID(t *testing.T) {
	table := NewRoutingTable()
	table.Freeze()
	err := table.Send(context.Background(), 9999, NewMessage(1))
	assert.ErrorIs(t, err, ErrUnknownDestination)
}

func TestRoutingTable_Register_Duplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	table := NewRoutingTable()
	require.NoError(t, table.Register(newMockEndpoint(ctrl, 2001)))

	err := table.Register(newMockEndpoint(ctrl, 2001))

	assert.ErrorIs(t, err, ErrDuplicateUnit)
	assert.Equal(t, 1, table.Len())
}

func TestRoutingTable_Register_AfterFreeze(t *testing.T) {
	ctrl := gomock.NewController(t)
	table := NewRoutingTable()
	table.Freeze()

	err := table.Register(newMockEndpoint(ctrl, 2001))

	assert.ErrorIs(t, err, ErrRegistryFrozen)
	assert.False(t, table.Has(2001))
}

func TestRoutingTable_Resolve_BeforeFreeze(t *testing.T) {
	ctrl := gomock.NewController(t)
	table := NewRoutingTable()
	require.NoError(t, table.Register(newMockEndpoint(ctrl, 2001)))

	_, err := table.Resolve(2001)

	assert.ErrorIs(t, err, ErrRegistryNotFrozen)
	assert.True(t, table.Has(2001))
}

func TestRoutingTable_Register_Nil(t *testing.T) {
	assert.Error(t, NewRoutingTable().Register(nil))
}

func TestRoutingTable_IDs_Sorted(t *testing.T) {
	ctrl := gomock.NewController(t)
	table := NewRoutingTable()
	for _, id := range []UnitID{3000, 1000, 2001, 2000} {
		require.NoError(t, table.Register(newMockEndpoint(ctrl, id)))
	}
	table.Freeze()
	table.Freeze()

	assert.True(t, table.Frozen())
	assert.Equal(t, []UnitID{1000, 2000, 2001, 3000}, table.IDs())
	assert.Equal(t, 4, table.Len())
}
