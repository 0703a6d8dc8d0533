package routing

// PortID is the arena index of a port.
type PortID int

// GroupID is the arena index of a port group.
type GroupID int

const noPort PortID = -1

// Port is a hardware resource a route runs over.
type Port struct {
	id     PortID
	name   string
	groups []GroupID
	routes []RouteID

	// per cycle
	used    bool
	blocked bool
	usedBy  []RouteID

	// policyBlocked is set by the platform and survives resets
	policyBlocked bool
}

// Name returns the port name
func (p *Port) Name() string { return p.name }

// ID returns the arena handle of the port
func (p *Port) ID() PortID { return p.id }

// IsUsed reports whether a used route runs over the port this cycle.
func (p *Port) IsUsed() bool { return p.used }

// IsBlocked reports whether the port was blocked this cycle, either by
// policy or because another member of one of its groups is used.
func (p *Port) IsBlocked() bool { return p.blocked }

// UsedBy returns the routes that marked the port used this cycle.
func (p *Port) UsedBy() []RouteID { return p.usedBy }

func (p *Port) resetAvailability() {
	p.used = false
	p.blocked = false
	p.usedBy = p.usedBy[:0]
}

// PortGroup is a set of mutually exclusive ports.
type PortGroup struct {
	id      GroupID
	name    string
	members []PortID
}

// Name returns the group name
func (g *PortGroup) Name() string { return g.name }

// Members returns the member ports in insertion order.
func (g *PortGroup) Members() []PortID { return g.members }

func (g *PortGroup) has(port PortID) bool {
	for _, m := range g.members {
		if m == port {
			return true
		}
	}
	return false
}
