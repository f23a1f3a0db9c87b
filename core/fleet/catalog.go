package fleet

// Capability describes what a vehicle type can do. The catalog is static,
// loaded from configuration, and consulted only while validating CONNECT
// messages.
type Capability struct {
	Jobs        int    `json:"jobs"`
	Description string `json:"description,omitempty"`
}

// Catalog maps vehicle-type identifiers to their capability descriptors.
type Catalog map[string]Capability

// Known reports whether the vehicle type may join the fleet. An empty type is
// always accepted, as is any type when no catalog is configured.
func (c Catalog) Known(vehicleType string) bool {
	if vehicleType == "" || len(c) == 0 {
		return true
	}
	_, ok := c[vehicleType]
	return ok
}
