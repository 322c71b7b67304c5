package message

const (
	// RoleParameterType is the setup parameter announcing the endpoint role.
	RoleParameterType uint64 = 0x00
	// PathParameterType is the setup parameter carrying the path on raw QUIC.
	PathParameterType uint64 = 0x01
	// AuthorizationInfoParameterType is the subscribe and announce parameter
	// carrying an authorization token.
	AuthorizationInfoParameterType uint64 = 0x02
)

const (
	RolePublisher  byte = 0x01
	RoleSubscriber byte = 0x02
	RolePubSub     byte = 0x03
)

type Parameter struct {
	Type  uint64
	Value []byte
}

// Parameters is an ordered parameter list.
// On the wire it is prefixed by the parameter count, not the byte size.
type Parameters []Parameter

// Get returns the value of the first parameter of type t.
func (p Parameters) Get(t uint64) ([]byte, bool) {
	for _, param := range p {
		if param.Type == t {
			return param.Value, true
		}
	}
	return nil, false
}

func (e *encoder) parameters(field string, params Parameters) {
	e.varint(field, uint64(len(params)))
	for _, param := range params {
		e.varint(field, param.Type)
		e.bytes(field, param.Value)
	}
}

func (d *decoder) parameters(field string) Parameters {
	n := d.count(field)
	if d.err != nil || n == 0 {
		return nil
	}

	params := make(Parameters, 0, n)
	for i := uint64(0); i < n; i++ {
		t := d.varint(field)
		v := d.bytes(field)
		if d.err != nil {
			return nil
		}
		params = append(params, Parameter{Type: t, Value: v})
	}

	return params
}
