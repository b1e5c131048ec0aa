package returns

// ProductCondition classifies the physical state of returned goods
type ProductCondition string

const (
	ConditionGood       ProductCondition = "GOOD"
	ConditionDamaged    ProductCondition = "DAMAGED"
	ConditionExpired    ProductCondition = "EXPIRED"
	ConditionQuarantine ProductCondition = "QUARANTINE"
	ConditionWriteOff   ProductCondition = "WRITE_OFF"
)

// IsValid checks if the condition is a known ProductCondition
func (c ProductCondition) IsValid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionExpired, ConditionQuarantine, ConditionWriteOff:
		return true
	}
	return false
}

// String returns the string representation of ProductCondition
func (c ProductCondition) String() string {
	return string(c)
}

// InventoryState is the stock state pushed to the external system for a
// returned line
type InventoryState string

const (
	InventoryStateAvailable  InventoryState = "available"
	InventoryStateQuarantine InventoryState = "quarantine"
	InventoryStateWriteOff   InventoryState = "write-off"
)

// TargetInventoryState maps a product condition to the inventory state the
// external system should record the stock under. This is the single source
// of truth for the mapping.
func (c ProductCondition) TargetInventoryState() InventoryState {
	switch c {
	case ConditionGood:
		return InventoryStateAvailable
	case ConditionDamaged, ConditionQuarantine:
		return InventoryStateQuarantine
	case ConditionExpired, ConditionWriteOff:
		return InventoryStateWriteOff
	}
	return InventoryStateQuarantine
}

// Creditable returns true if goods in this condition earn the customer a
// credit rather than a write-off
func (c ProductCondition) Creditable() bool {
	return c == ConditionGood
}
