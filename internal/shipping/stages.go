package shipping

// The stage machine is linear and terminal at delivered_to_pickup. There is
// no branching and no going back.
const (
	StageProcessing        = "processing"
	StageCollected         = "collected"
	StageInTransit         = "in_transit"
	StageDeliveredToPickup = "delivered_to_pickup"
)

var stageOrder = []string{StageProcessing, StageCollected, StageInTransit, StageDeliveredToPickup}

// NextStage returns the stage after cur, or ok=false when cur is terminal
// or unknown.
func NextStage(cur string) (string, bool) {
	for i, s := range stageOrder {
		if s == cur && i+1 < len(stageOrder) {
			return stageOrder[i+1], true
		}
	}
	return "", false
}

func Terminal(stage string) bool { return stage == StageDeliveredToPickup }
