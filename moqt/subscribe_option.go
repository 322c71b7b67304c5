package moqt

import "github.com/OkutaniDaichi0106/moqtransport/moqt/message"

type subscribeConfig struct {
	filter     message.SubscribeFilter
	locations  message.LocationRange
	priority   uint8
	groupOrder uint8
	params     message.Parameters
}

func defaultSubscribeConfig() subscribeConfig {
	return subscribeConfig{
		filter: message.SubscribeFilter{Type: message.LatestGroup},
		locations: message.LocationRange{
			StartGroup:  message.Location{Mode: message.LocationRelativePrevious, Value: 0},
			StartObject: message.Location{Mode: message.LocationAbsolute, Value: 0},
		},
		priority:   0,
		groupOrder: 1,
	}
}

// SubscribeOption configures a SUBSCRIBE request.
type SubscribeOption func(*subscribeConfig)

// WithFilter sets the subscription range. The default is LatestGroup.
func WithFilter(filter message.SubscribeFilter) SubscribeOption {
	return func(c *subscribeConfig) {
		c.filter = filter
	}
}

// WithLocations sets the subscription range for Draft03 sessions.
// The default starts at the latest group.
func WithLocations(locations message.LocationRange) SubscribeOption {
	return func(c *subscribeConfig) {
		c.locations = locations
	}
}

func WithSubscriberPriority(priority uint8) SubscribeOption {
	return func(c *subscribeConfig) {
		c.priority = priority
	}
}

// WithGroupOrder sets the requested group delivery order. The default is 1 (ascending).
func WithGroupOrder(order uint8) SubscribeOption {
	return func(c *subscribeConfig) {
		c.groupOrder = order
	}
}

func WithSubscribeParameters(params ...message.Parameter) SubscribeOption {
	return func(c *subscribeConfig) {
		c.params = append(c.params, params...)
	}
}

// WithAuthorizationInfo attaches an authorization token to the request.
func WithAuthorizationInfo(token string) SubscribeOption {
	return WithSubscribeParameters(message.Parameter{
		Type:  message.AuthorizationInfoParameterType,
		Value: []byte(token),
	})
}
