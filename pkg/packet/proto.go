package packet

// Protocol describes one protocol type: a name for diagnostics and the
// shared Schema attached at definition time. Implementations are stateless
// singletons; all per-packet state lives in Packet.
type Protocol interface {
	Name() string
	Schema() *Schema
}

// Dissector is implemented by protocols whose header shape can change from
// the schema's nominal layout: optional fields that get activated or
// deactivated, TriggerList regions, dynamic fields, or an upper layer chosen
// by a type field. Dissect runs before the fixed-header decode and may call
// Set, InitTriggerList, AddField and DispatchUpper on p. Header field values
// are not populated yet; the hook reads what it needs from buf directly.
type Dissector interface {
	Dissect(p *Packet, buf []byte) error
}

// Updater recomputes auto-update fields (lengths, checksums) before packing.
// It runs on Bin when the instance has pending changes or has never been
// serialized. Implementations must honor the per-field AutoUpdateActive
// gates.
type Updater interface {
	UpdateFields(p *Packet)
}

// Trailer lets a protocol append trailing bytes (e.g. padding) after the
// base serialization of header plus body.
type Trailer interface {
	Trailer(p *Packet, wire []byte) []byte
}

// Relater replaces the local part of the default same-flow check. The core
// still recurses into nested bodies after a positive local result.
type Relater interface {
	Related(p, other *Packet) bool
}

// Directioner replaces the default address-pair direction classification.
type Directioner interface {
	Direction(p, other *Packet) Direction
}

// AddressReverser swaps source and destination addresses in place. Protocols
// with more than one address pair implement this; the default swaps the
// schema's declared pair.
type AddressReverser interface {
	ReverseAddress(p *Packet)
}

// BodyObserver is notified whenever a nested packet is attached as p's body,
// either explicitly or through discriminator dispatch. Lower layers use it
// to install cross-layer callbacks on the new upper layer.
type BodyObserver interface {
	UpperAttached(p, upper *Packet)
}

// Generic is a plain Protocol with no hooks, suitable for prototypes and
// YAML-defined schemas.
type Generic struct {
	name   string
	schema *Schema
}

// NewGeneric wraps a schema in a hook-less protocol.
func NewGeneric(name string, schema *Schema) *Generic {
	return &Generic{name: name, schema: schema}
}

func (g *Generic) Name() string    { return g.name }
func (g *Generic) Schema() *Schema { return g.schema }
