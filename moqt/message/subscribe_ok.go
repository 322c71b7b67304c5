package message

/*
 * SUBSCRIBE_OK Message {
 *   Subscribe ID (varint),
 *   Expires (varint),
 *   Group Order (8),                Draft05
 *   ContentExists (varint),
 *   [Largest Group ID (varint)],
 *   [Largest Object ID (varint)],
 * }
 */
type SubscribeOk struct {
	SubscribeID     uint64
	Expires         uint64
	GroupOrder      uint8
	ContentExists   bool
	LargestGroupID  uint64
	LargestObjectID uint64
}

func (*SubscribeOk) Type() MessageType {
	return SubscribeOkType
}

func (m *SubscribeOk) append(e *encoder) {
	e.varint("subscribe_id", m.SubscribeID)
	e.varint("expires", m.Expires)
	if e.l.subscriberPriority {
		e.byte("group_order", uint64(m.GroupOrder))
	}
	e.bool("content_exists", m.ContentExists)
	if m.ContentExists {
		e.varint("largest_group_id", m.LargestGroupID)
		e.varint("largest_object_id", m.LargestObjectID)
	}
}

func (m *SubscribeOk) decode(d *decoder) {
	m.SubscribeID = d.varint("subscribe_id")
	m.Expires = d.varint("expires")
	if d.l.subscriberPriority {
		m.GroupOrder = uint8(d.byte("group_order"))
	}
	m.ContentExists = d.bool("content_exists")
	if m.ContentExists {
		m.LargestGroupID = d.varint("largest_group_id")
		m.LargestObjectID = d.varint("largest_object_id")
	}
}

/*
 * SUBSCRIBE_ERROR Message {
 *   Subscribe ID (varint),
 *   Error Code (varint),
 *   Reason Phrase (string),
 *   Track Alias (varint),
 * }
 */
type SubscribeError struct {
	SubscribeID  uint64
	ErrorCode    uint64
	ReasonPhrase string
	TrackAlias   uint64
}

func (*SubscribeError) Type() MessageType {
	return SubscribeErrorType
}

func (m *SubscribeError) append(e *encoder) {
	e.varint("subscribe_id", m.SubscribeID)
	e.varint("error_code", m.ErrorCode)
	e.string("reason_phrase", m.ReasonPhrase)
	e.varint("track_alias", m.TrackAlias)
}

func (m *SubscribeError) decode(d *decoder) {
	m.SubscribeID = d.varint("subscribe_id")
	m.ErrorCode = d.varint("error_code")
	m.ReasonPhrase = d.string("reason_phrase")
	m.TrackAlias = d.varint("track_alias")
}

/*
 * SUBSCRIBE_DONE Message {
 *   Subscribe ID (varint),
 *   Status Code (varint),
 *   Reason Phrase (string),
 *   ContentExists (varint),
 *   [Final Group (varint)],
 *   [Final Object (varint)],
 * }
 */
type SubscribeDone struct {
	SubscribeID   uint64
	StatusCode    uint64
	ReasonPhrase  string
	ContentExists bool
	FinalGroup    uint64
	FinalObject   uint64
}

func (*SubscribeDone) Type() MessageType {
	return SubscribeDoneType
}

func (m *SubscribeDone) append(e *encoder) {
	e.varint("subscribe_id", m.SubscribeID)
	e.varint("status_code", m.StatusCode)
	e.string("reason_phrase", m.ReasonPhrase)
	e.bool("content_exists", m.ContentExists)
	if m.ContentExists {
		e.varint("final_group", m.FinalGroup)
		e.varint("final_object", m.FinalObject)
	}
}

func (m *SubscribeDone) decode(d *decoder) {
	m.SubscribeID = d.varint("subscribe_id")
	m.StatusCode = d.varint("status_code")
	m.ReasonPhrase = d.string("reason_phrase")
	m.ContentExists = d.bool("content_exists")
	if m.ContentExists {
		m.FinalGroup = d.varint("final_group")
		m.FinalObject = d.varint("final_object")
	}
}
