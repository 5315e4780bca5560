package booking

// Deps are the collaborators an Engine is built from.  Pricer defaults to
// SegmentFare over Config and Clock to SystemClock.
type Deps struct {
	Store    Store
	Topology RouteTopologyProvider
	Config   ConfigProvider
	Pricer   PriceCalculator
	Clock    Clock
	Hooks    Hooks
}

// Engine bundles the booking components sharing one store and clock.
type Engine struct {
	Topology    *RouteTopology
	Overlap     *OverlapChecker
	Holds       *HoldManager
	Capacity    *CapacityModel
	Coordinator *Coordinator
}

// New wires every component of the engine.
func New(d Deps) *Engine {
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.Pricer == nil {
		d.Pricer = SegmentFare{Config: d.Config}
	}
	topology := NewRouteTopology(d.Topology)
	checker := NewOverlapChecker(d.Store, topology, d.Clock)
	holds := NewHoldManager(d.Store, checker, d.Config, d.Clock, d.Hooks)
	return &Engine{
		Topology:    topology,
		Overlap:     checker,
		Holds:       holds,
		Capacity:    NewCapacityModel(d.Store, d.Topology, d.Clock, d.Hooks),
		Coordinator: NewCoordinator(d.Store, topology, checker, holds, d.Pricer, d.Clock, d.Hooks),
	}
}
