package entity

// Notifier is a reusable subscriber fan-out for entities whose value isn't
// addressed through a device channel, e.g. hub.SystemVariable. It wraps the
// same registration-ordered, panic-isolated dispatch GenericEntity and
// Event use internally.
type Notifier struct {
	list *subscriberList
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{list: newSubscriberList()}
}

// Subscribe registers cb and returns an id for a later Unsubscribe.
func (n *Notifier) Subscribe(cb func(Value)) SubscriberID {
	return n.list.subscribe(cb)
}

// Unsubscribe removes a previously registered subscriber; unsubscribing an
// unknown id is a no-op.
func (n *Notifier) Unsubscribe(id SubscriberID) {
	n.list.unsubscribe(id)
}

// Notify fans v out to every current subscriber in registration order.
func (n *Notifier) Notify(v Value) {
	n.list.notify(v)
}
