package model

// ResourceStatus reflects the operational state of a rescue resource.
type ResourceStatus int

const (
	StatusAvailable ResourceStatus = iota
	StatusStandby
	StatusDeployed
	StatusUnavailable
)

// String returns a human-readable representation of the status.
func (s ResourceStatus) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusStandby:
		return "standby"
	case StatusDeployed:
		return "deployed"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Resource represents a rescue team or vehicle that can be dispatched.
type Resource struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Type            string         `json:"type"`
	Capabilities    []string       `json:"capabilities"`
	Location        Location       `json:"location"`
	Personnel       int            `json:"personnel"`
	EquipmentLevel  float64        `json:"equipmentLevel"` // 0..1, condition and completeness of gear
	ResponseTimeMin float64        `json:"responseTimeMin"`
	Status          ResourceStatus `json:"status"`
}

// HasCapability reports whether the resource provides the given capability code.
func (r Resource) HasCapability(code string) bool {
	for _, c := range r.Capabilities {
		if c == code {
			return true
		}
	}
	return false
}

// Dispatchable reports whether the resource can be assigned to a new scene.
func (r Resource) Dispatchable() bool {
	return r.Status == StatusAvailable || r.Status == StatusStandby
}
