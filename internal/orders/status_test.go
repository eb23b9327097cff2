package orders

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]Status{
		{StatusCreatedUnpaid, StatusPaying},
		{StatusCreatedUnpaid, StatusFailed},
		{StatusFailed, StatusPaying},
		{StatusPaying, StatusCreatedPaid},
		{StatusPaying, StatusFailed},
		{StatusCreatedPaid, StatusProcessing},
		{StatusProcessing, StatusCollected},
		{StatusCollected, StatusInTransit},
		{StatusInTransit, StatusDeliveredToPickup},
		{StatusDeliveredToPickup, StatusReceived},
	}
	for _, tr := range allowed {
		require.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]Status{
		{StatusCreatedUnpaid, StatusCreatedPaid}, // must go through paying
		{StatusCreatedPaid, StatusFailed},        // paid orders cannot fail
		{StatusReceived, StatusProcessing},       // received is terminal
		{StatusInTransit, StatusCollected},       // no going back
		{StatusDeliveredToPickup, StatusPaying},
	}
	for _, tr := range denied {
		require.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestPayable(t *testing.T) {
	require.True(t, Payable(StatusCreatedUnpaid))
	require.True(t, Payable(StatusFailed), "a failed saga must be retryable")
	require.False(t, Payable(StatusPaying))
	require.False(t, Payable(StatusCreatedPaid))
	require.False(t, Payable(StatusReceived))
}

func TestIsShipmentStatus(t *testing.T) {
	for _, s := range []Status{StatusProcessing, StatusCollected, StatusInTransit, StatusDeliveredToPickup} {
		require.True(t, IsShipmentStatus(s))
	}
	require.False(t, IsShipmentStatus(StatusCreatedPaid))
	require.False(t, IsShipmentStatus(StatusReceived))
	require.False(t, IsShipmentStatus(Status("bogus")))
}
