package packet

import "fmt"

// Callback answers cross-layer queries by opaque id, the classic case being
// a transport layer asking the network layer for checksum pseudo-header
// bytes. Registered on the packet that serves the query; non-owning.
type Callback func(id string) ([]byte, error)

// SetCallback registers the cross-layer callback on p. The registration
// survives replacement of p as somebody's body.
func (p *Packet) SetCallback(cb Callback) { p.callback = cb }

// Call queries p's callback. ErrUnknownCallback when none is registered.
func (p *Packet) Call(id string) ([]byte, error) {
	if p.callback == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCallback, id)
	}
	return p.callback(id)
}

// Upper returns the nested body packet, nil when the body is raw bytes.
func (p *Packet) Upper() *Packet { return p.upper }

// Payload returns the raw byte body, nil while a nested packet is attached.
func (p *Packet) Payload() []byte { return p.payload }

// SetPayload assigns raw bytes as the body. Rejected while a nested packet
// is attached: replacing a typed body with bytes must go through
// DetachUpper first so type information is never lost silently.
func (p *Packet) SetPayload(b []byte) error {
	if p.upper != nil {
		return ErrBodyHandlerSet
	}
	p.payload = b
	p.bodySet = true
	p.markChanged()
	return nil
}

// SetUpper attaches a nested packet as p's body, replacing any prior body.
// A callback registered on the previous upper layer is carried over to the
// new one so higher layers keep access to lower-layer services after a body
// swap. The lower protocol's BodyObserver hook, if any, runs last.
func (p *Packet) SetUpper(upper *Packet) {
	if p.upper != nil {
		if upper.callback == nil {
			upper.callback = p.upper.callback
		}
		p.upper.onChange = nil
	}
	upper.onChange = p.markChanged
	p.upper = upper
	p.payload = nil
	p.bodySet = true
	p.markChanged()
	if o, ok := p.proto.(BodyObserver); ok {
		o.UpperAttached(p, upper)
	}
}

// DetachUpper removes and returns the nested body, leaving an empty raw
// payload.
func (p *Packet) DetachUpper() *Packet {
	u := p.upper
	if u != nil {
		u.onChange = nil
	}
	p.upper = nil
	p.markChanged()
	return u
}

// Chain attaches upper as p's body and returns upper, so layer stacks read
// left to right: eth.Chain(ip).Chain(tcp).
func (p *Packet) Chain(upper *Packet) *Packet {
	p.SetUpper(upper)
	return upper
}

// Stack composes a layer chain and returns the lowest layer:
// Stack(eth, ip, tcp) nests tcp inside ip inside eth. Raw tails are
// attached with SetPayload on the last layer.
func Stack(low *Packet, uppers ...*Packet) *Packet {
	cur := low
	for _, u := range uppers {
		cur = cur.Chain(u)
	}
	return low
}

// DispatchUpper resolves the decoded type-discriminator value against the
// schema's handler map and attaches the matching protocol, parsed from rest,
// as the body. An unknown discriminator is not an error: the remaining bytes
// are kept as an opaque raw payload, as is a rest the mapped protocol fails
// to parse. Called by dissection hooks.
func (p *Packet) DispatchUpper(disc uint64, rest []byte) {
	keep := func() {
		b := make([]byte, len(rest))
		copy(b, rest)
		p.payload = b
		p.bodySet = true
	}
	upperProto, ok := p.proto.Schema().Upper(disc)
	if !ok {
		keep()
		return
	}
	upper, err := Parse(upperProto, rest)
	if err != nil {
		// unrecognized or truncated upper layers degrade to opaque data
		keep()
		return
	}
	p.SetUpper(upper)
}
