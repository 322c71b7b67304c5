package message

import "fmt"

type FilterType uint64

const (
	LatestGroup   FilterType = 0x1
	LatestObject  FilterType = 0x2
	AbsoluteStart FilterType = 0x3
	AbsoluteRange FilterType = 0x4
)

func (f FilterType) String() string {
	switch f {
	case LatestGroup:
		return "LatestGroup"
	case LatestObject:
		return "LatestObject"
	case AbsoluteStart:
		return "AbsoluteStart"
	case AbsoluteRange:
		return "AbsoluteRange"
	default:
		return fmt.Sprintf("FilterType(0x%x)", uint64(f))
	}
}

// SubscribeFilter selects the range of a subscription.
// Start fields are used by AbsoluteStart and AbsoluteRange, end fields only
// by AbsoluteRange.
type SubscribeFilter struct {
	Type        FilterType
	StartGroup  uint64
	StartObject uint64
	EndGroup    uint64
	EndObject   uint64
}

func (e *encoder) filter(f SubscribeFilter) {
	e.varint("filter_type", uint64(f.Type))
	switch f.Type {
	case LatestGroup, LatestObject:
	case AbsoluteStart:
		e.varint("start_group", f.StartGroup)
		e.varint("start_object", f.StartObject)
	case AbsoluteRange:
		e.varint("start_group", f.StartGroup)
		e.varint("start_object", f.StartObject)
		e.varint("end_group", f.EndGroup)
		e.varint("end_object", f.EndObject)
	default:
		e.fail(&EncodingError{Field: "filter_type", Value: uint64(f.Type)})
	}
}

func (d *decoder) filter() SubscribeFilter {
	var f SubscribeFilter
	f.Type = FilterType(d.varint("filter_type"))
	if d.err != nil {
		return f
	}

	switch f.Type {
	case LatestGroup, LatestObject:
	case AbsoluteStart:
		f.StartGroup = d.varint("start_group")
		f.StartObject = d.varint("start_object")
	case AbsoluteRange:
		f.StartGroup = d.varint("start_group")
		f.StartObject = d.varint("start_object")
		f.EndGroup = d.varint("end_group")
		f.EndObject = d.varint("end_object")
	default:
		d.fail("filter_type", fmt.Errorf("unknown filter type %d", uint64(f.Type)))
	}

	return f
}

type LocationMode uint64

const (
	LocationNone             LocationMode = 0x0
	LocationAbsolute         LocationMode = 0x1
	LocationRelativePrevious LocationMode = 0x2
	LocationRelativeNext     LocationMode = 0x3
)

// Location is a subscription bound in the Draft03 layout.
// Value is omitted on the wire when Mode is LocationNone.
type Location struct {
	Mode  LocationMode
	Value uint64
}

// LocationRange is the Draft03 counterpart of SubscribeFilter.
type LocationRange struct {
	StartGroup  Location
	StartObject Location
	EndGroup    Location
	EndObject   Location
}

func (e *encoder) location(field string, l Location) {
	if l.Mode > LocationRelativeNext {
		e.fail(&EncodingError{Field: field, Value: uint64(l.Mode)})
		return
	}
	e.varint(field, uint64(l.Mode))
	if l.Mode != LocationNone {
		e.varint(field, l.Value)
	}
}

func (d *decoder) location(field string) Location {
	var l Location
	l.Mode = LocationMode(d.varint(field))
	if d.err != nil {
		return l
	}
	if l.Mode > LocationRelativeNext {
		d.fail(field, fmt.Errorf("unknown location mode %d", uint64(l.Mode)))
		return l
	}
	if l.Mode != LocationNone {
		l.Value = d.varint(field)
	}
	return l
}

func (e *encoder) locationRange(r LocationRange) {
	e.location("start_group", r.StartGroup)
	e.location("start_object", r.StartObject)
	e.location("end_group", r.EndGroup)
	e.location("end_object", r.EndObject)
}

func (d *decoder) locationRange() LocationRange {
	return LocationRange{
		StartGroup:  d.location("start_group"),
		StartObject: d.location("start_object"),
		EndGroup:    d.location("end_group"),
		EndObject:   d.location("end_object"),
	}
}

/*
 * SUBSCRIBE Message {
 *   Subscribe ID (varint),
 *   Track Alias (varint),
 *   Track Namespace (string),
 *   Track Name (string),
 *   Subscriber Priority (8),        Draft05
 *   Group Order (8),                Draft05
 *   Filter Type (varint),           Draft04+
 *   StartGroup (varint),            AbsoluteStart, AbsoluteRange
 *   StartObject (varint),           AbsoluteStart, AbsoluteRange
 *   EndGroup (varint),              AbsoluteRange
 *   EndObject (varint),             AbsoluteRange
 *   StartGroup .. EndObject (Location), Draft03
 *   Number of Parameters (varint),
 *   Subscribe Parameters (..) ...
 * }
 */
type Subscribe struct {
	SubscribeID        uint64
	TrackAlias         uint64
	TrackNamespace     string
	TrackName          string
	SubscriberPriority uint8
	GroupOrder         uint8
	Filter             SubscribeFilter
	Range              LocationRange
	Parameters         Parameters
}

func (*Subscribe) Type() MessageType {
	return SubscribeType
}

func (m *Subscribe) append(e *encoder) {
	e.varint("subscribe_id", m.SubscribeID)
	e.varint("track_alias", m.TrackAlias)
	e.string("track_namespace", m.TrackNamespace)
	e.string("track_name", m.TrackName)
	if e.l.subscriberPriority {
		e.byte("subscriber_priority", uint64(m.SubscriberPriority))
		e.byte("group_order", uint64(m.GroupOrder))
	}
	if e.l.filterType {
		e.filter(m.Filter)
	} else {
		e.locationRange(m.Range)
	}
	e.parameters("subscribe_parameters", m.Parameters)
}

func (m *Subscribe) decode(d *decoder) {
	m.SubscribeID = d.varint("subscribe_id")
	m.TrackAlias = d.varint("track_alias")
	m.TrackNamespace = d.string("track_namespace")
	m.TrackName = d.string("track_name")
	if d.l.subscriberPriority {
		m.SubscriberPriority = uint8(d.byte("subscriber_priority"))
		m.GroupOrder = uint8(d.byte("group_order"))
	}
	if d.l.filterType {
		m.Filter = d.filter()
	} else {
		m.Range = d.locationRange()
	}
	m.Parameters = d.parameters("subscribe_parameters")
}

/*
 * SUBSCRIBE_UPDATE Message {
 *   Subscribe ID (varint),
 *   Filter Type and range fields as in SUBSCRIBE,
 *   Subscriber Priority (8),        Draft05
 *   Number of Parameters (varint),
 *   Subscribe Parameters (..) ...
 * }
 */
type SubscribeUpdate struct {
	SubscribeID        uint64
	Filter             SubscribeFilter
	Range              LocationRange
	SubscriberPriority uint8
	Parameters         Parameters
}

func (*SubscribeUpdate) Type() MessageType {
	return SubscribeUpdateType
}

func (m *SubscribeUpdate) append(e *encoder) {
	e.varint("subscribe_id", m.SubscribeID)
	if e.l.filterType {
		e.filter(m.Filter)
	} else {
		e.locationRange(m.Range)
	}
	if e.l.subscriberPriority {
		e.byte("subscriber_priority", uint64(m.SubscriberPriority))
	}
	e.parameters("subscribe_parameters", m.Parameters)
}

func (m *SubscribeUpdate) decode(d *decoder) {
	m.SubscribeID = d.varint("subscribe_id")
	if d.l.filterType {
		m.Filter = d.filter()
	} else {
		m.Range = d.locationRange()
	}
	if d.l.subscriberPriority {
		m.SubscriberPriority = uint8(d.byte("subscriber_priority"))
	}
	m.Parameters = d.parameters("subscribe_parameters")
}

/*
 * UNSUBSCRIBE Message {
 *   Subscribe ID (varint),
 * }
 */
type Unsubscribe struct {
	SubscribeID uint64
}

func (*Unsubscribe) Type() MessageType {
	return UnsubscribeType
}

func (m *Unsubscribe) append(e *encoder) {
	e.varint("subscribe_id", m.SubscribeID)
}

func (m *Unsubscribe) decode(d *decoder) {
	m.SubscribeID = d.varint("subscribe_id")
}
