package access

// Role names as they appear in the backend's user records.
const (
	RoleAdmin       = "NexPort Admin"
	RoleFinance     = "NexPort Finance"
	RoleWarehouse   = "NexPort Warehouse"
	RoleProcurement = "NexPort Procurement"
)

// Capabilities is the resolved permission set for one viewer.
// Computed once per session and read-only afterwards.
type Capabilities struct {
	Admin       bool
	Finance     bool
	Warehouse   bool
	Procurement bool
}

// Resolve maps a viewer's assigned roles to a capability set.
// Admin is a superset capability: it implies every other flag.
// Unknown role names are ignored; an empty role set yields all-false.
func Resolve(roles []string) Capabilities {
	var caps Capabilities
	for _, role := range roles {
		switch role {
		case RoleAdmin:
			caps.Admin = true
		case RoleFinance:
			caps.Finance = true
		case RoleWarehouse:
			caps.Warehouse = true
		case RoleProcurement:
			caps.Procurement = true
		}
	}
	if caps.Admin {
		caps.Finance = true
		caps.Warehouse = true
		caps.Procurement = true
	}
	return caps
}

// Label returns a short descriptor for the viewer, used in the header line.
func (c Capabilities) Label() string {
	switch {
	case c.Admin:
		return "Admin"
	case c.Finance:
		return "Finance"
	case c.Warehouse:
		return "Warehouse"
	case c.Procurement:
		return "Procurement"
	default:
		return "User"
	}
}

// Predicate decides whether a widget is visible for a capability set.
// Visibility is modelled as data on the widget descriptor so that
// "who can see it" and "who can fetch it" cannot drift apart.
type Predicate func(Capabilities) bool

// Admin matches viewers with the Admin capability.
func Admin(c Capabilities) bool { return c.Admin }

// Finance matches viewers with the Finance capability.
func Finance(c Capabilities) bool { return c.Finance }

// Warehouse matches viewers with the Warehouse capability.
func Warehouse(c Capabilities) bool { return c.Warehouse }

// Procurement matches viewers with the Procurement capability.
func Procurement(c Capabilities) bool { return c.Procurement }

// Any returns a predicate satisfied when at least one of the given
// predicates is satisfied.
func Any(preds ...Predicate) Predicate {
	return func(c Capabilities) bool {
		for _, p := range preds {
			if p(c) {
				return true
			}
		}
		return false
	}
}
