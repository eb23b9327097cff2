package orders

type Status string

const (
	StatusCreatedUnpaid     Status = "created_unpaid"
	StatusPaying            Status = "paying" // in-flight saga guard, never returned by pay
	StatusCreatedPaid       Status = "created_paid"
	StatusFailed            Status = "failed"
	StatusProcessing        Status = "processing"
	StatusCollected         Status = "collected"
	StatusInTransit         Status = "in_transit"
	StatusDeliveredToPickup Status = "delivered_to_pickup"
	StatusReceived          Status = "received"
)

var validNext = map[Status]map[Status]bool{
	StatusCreatedUnpaid:     {StatusPaying: true, StatusFailed: true},
	StatusFailed:            {StatusPaying: true},
	StatusPaying:            {StatusCreatedPaid: true, StatusFailed: true},
	StatusCreatedPaid:       {StatusProcessing: true, StatusCollected: true},
	StatusProcessing:        {StatusCollected: true},
	StatusCollected:         {StatusInTransit: true},
	StatusInTransit:         {StatusDeliveredToPickup: true},
	StatusDeliveredToPickup: {StatusReceived: true},
	StatusReceived:          {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Payable reports whether a pay attempt may start from this status.
// Retry after a failed saga is allowed.
func Payable(s Status) bool {
	return s == StatusCreatedUnpaid || s == StatusFailed
}

// shipmentStatuses are the only values the shipment tracker may push
// through POST /orders/{id}/status.
var shipmentStatuses = map[Status]bool{
	StatusProcessing:        true,
	StatusCollected:         true,
	StatusInTransit:         true,
	StatusDeliveredToPickup: true,
}

func IsShipmentStatus(s Status) bool {
	return shipmentStatuses[s]
}
