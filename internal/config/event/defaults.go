package event

const (
	defaultEnabled       = true
	defaultAsyncDelivery = false
	defaultTopicPrefix   = "scope"
)
