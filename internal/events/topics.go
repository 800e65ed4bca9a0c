package events

// Topic constants for domain events emitted by the till.
const (
	TopicOrderCreated = "order.created"
	TopicOrderEdited  = "order.edited"
)

// DefaultTopics returns the topics forwarded to the kitchen queue.
func DefaultTopics() []string {
	return []string{TopicOrderCreated, TopicOrderEdited}
}
