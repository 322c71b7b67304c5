package message

/*
 * CLIENT_SETUP Message {
 *   Number of Supported Versions (varint),
 *   Supported Version (varint) ...,
 *   Number of Parameters (varint),
 *   Setup Parameters (..) ...,
 * }
 */
type ClientSetup struct {
	Versions   []Version
	Parameters Parameters
}

func (*ClientSetup) Type() MessageType {
	return ClientSetupType
}

func (m *ClientSetup) append(e *encoder) {
	e.varint("supported_versions", uint64(len(m.Versions)))
	for _, v := range m.Versions {
		e.varint("supported_version", uint64(v))
	}
	e.parameters("setup_parameters", m.Parameters)
}

func (m *ClientSetup) decode(d *decoder) {
	n := d.count("supported_versions")
	m.Versions = make([]Version, 0, n)
	for i := uint64(0); i < n && d.err == nil; i++ {
		m.Versions = append(m.Versions, Version(d.varint("supported_version")))
	}
	m.Parameters = d.parameters("setup_parameters")
}

/*
 * SERVER_SETUP Message {
 *   Selected Version (varint),
 *   Number of Parameters (varint),
 *   Setup Parameters (..) ...,
 * }
 */
type ServerSetup struct {
	SelectedVersion Version
	Parameters      Parameters
}

func (*ServerSetup) Type() MessageType {
	return ServerSetupType
}

func (m *ServerSetup) append(e *encoder) {
	e.varint("selected_version", uint64(m.SelectedVersion))
	e.parameters("setup_parameters", m.Parameters)
}

func (m *ServerSetup) decode(d *decoder) {
	m.SelectedVersion = Version(d.varint("selected_version"))
	m.Parameters = d.parameters("setup_parameters")
}
