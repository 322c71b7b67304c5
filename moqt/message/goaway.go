package message

/*
 * GOAWAY Message {
 *   New Session URI (string),
 * }
 */
type GoAway struct {
	NewSessionURI string
}

func (*GoAway) Type() MessageType {
	return GoAwayType
}

func (m *GoAway) append(e *encoder) {
	e.string("new_session_uri", m.NewSessionURI)
}

func (m *GoAway) decode(d *decoder) {
	m.NewSessionURI = d.string("new_session_uri")
}
