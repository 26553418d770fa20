package events

// Topics emitted by the storefront.
const (
	TopicOrderCreated = "order.created"
)
