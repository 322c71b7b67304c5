package message

/*
 * ANNOUNCE Message {
 *   Track Namespace (string),
 *   Number of Parameters (varint),
 *   Parameters (..) ...,
 * }
 */
type Announce struct {
	TrackNamespace string
	Parameters     Parameters
}

func (*Announce) Type() MessageType {
	return AnnounceType
}

func (m *Announce) append(e *encoder) {
	e.string("track_namespace", m.TrackNamespace)
	e.parameters("parameters", m.Parameters)
}

func (m *Announce) decode(d *decoder) {
	m.TrackNamespace = d.string("track_namespace")
	m.Parameters = d.parameters("parameters")
}

/*
 * ANNOUNCE_OK Message {
 *   Track Namespace (string),
 * }
 */
type AnnounceOk struct {
	TrackNamespace string
}

func (*AnnounceOk) Type() MessageType {
	return AnnounceOkType
}

func (m *AnnounceOk) append(e *encoder) {
	e.string("track_namespace", m.TrackNamespace)
}

func (m *AnnounceOk) decode(d *decoder) {
	m.TrackNamespace = d.string("track_namespace")
}

/*
 * ANNOUNCE_ERROR Message {
 *   Track Namespace (string),
 *   Error Code (varint),
 *   Reason Phrase (string),
 * }
 */
type AnnounceError struct {
	TrackNamespace string
	ErrorCode      uint64
	ReasonPhrase   string
}

func (*AnnounceError) Type() MessageType {
	return AnnounceErrorType
}

func (m *AnnounceError) append(e *encoder) {
	e.string("track_namespace", m.TrackNamespace)
	e.varint("error_code", m.ErrorCode)
	e.string("reason_phrase", m.ReasonPhrase)
}

func (m *AnnounceError) decode(d *decoder) {
	m.TrackNamespace = d.string("track_namespace")
	m.ErrorCode = d.varint("error_code")
	m.ReasonPhrase = d.string("reason_phrase")
}

/*
 * UNANNOUNCE Message {
 *   Track Namespace (string),
 * }
 */
type Unannounce struct {
	TrackNamespace string
}

func (*Unannounce) Type() MessageType {
	return UnannounceType
}

func (m *Unannounce) append(e *encoder) {
	e.string("track_namespace", m.TrackNamespace)
}

func (m *Unannounce) decode(d *decoder) {
	m.TrackNamespace = d.string("track_namespace")
}
