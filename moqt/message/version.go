package message

import "fmt"

// Version is a negotiated MoQ Transport draft version.
type Version uint64

const (
	Draft03 Version = 0xff000003
	Draft04 Version = 0xff000004
	Draft05 Version = 0xff000005

	CurrentVersion = Draft05
)

func (v Version) String() string {
	switch v {
	case Draft03:
		return "draft-ietf-moq-transport-03"
	case Draft04:
		return "draft-ietf-moq-transport-04"
	case Draft05:
		return "draft-ietf-moq-transport-05"
	default:
		return fmt.Sprintf("Version(0x%x)", uint64(v))
	}
}

// layout records which optional field encodings a draft uses.
type layout struct {
	// Subscribe and SubscribeUpdate carry a filter type with conditional
	// fields instead of four Location pairs.
	filterType bool

	// Subscribe carries one-byte subscriber priority and group order,
	// SubscribeOk carries a one-byte group order.
	subscriberPriority bool

	// Objects carry a one-byte publisher priority instead of a varint send order.
	publisherPriority bool

	// ObjectStream carries an object status, and zero-length records carry
	// a status in place of the payload.
	objectStatus bool
}

var layouts = map[Version]layout{
	Draft03: {},
	Draft04: {
		filterType:   true,
		objectStatus: true,
	},
	Draft05: {
		filterType:         true,
		subscriberPriority: true,
		publisherPriority:  true,
		objectStatus:       true,
	},
}

// SupportedVersions returns the versions a Codec can be built for, newest first.
func SupportedVersions() []Version {
	return []Version{Draft05, Draft04, Draft03}
}
