package entity

import (
	"sync"

	"github.com/mdzio/go-logging"
)

var entityLog = logging.Get("entity")

// SubscriberID identifies a registered subscriber for later Unsubscribe
// calls.
type SubscriberID int

// subscriberList keeps subscriber callbacks in registration order, and
// isolates one subscriber's panic from the rest during fan-out. Shared by
// GenericEntity and Event.
type subscriberList struct {
	mtx       sync.Mutex
	nextID    SubscriberID
	order     []SubscriberID
	callbacks map[SubscriberID]func(Value)
}

func newSubscriberList() *subscriberList {
	return &subscriberList{callbacks: make(map[SubscriberID]func(Value))}
}

func (s *subscriberList) subscribe(cb func(Value)) SubscriberID {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	id := s.nextID
	s.nextID++
	s.order = append(s.order, id)
	s.callbacks[id] = cb
	return id
}

func (s *subscriberList) unsubscribe(id SubscriberID) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.callbacks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *subscriberList) notify(v Value) {
	s.mtx.Lock()
	ordered := append([]SubscriberID(nil), s.order...)
	callbacks := make([]func(Value), 0, len(ordered))
	for _, id := range ordered {
		callbacks = append(callbacks, s.callbacks[id])
	}
	s.mtx.Unlock()

	for _, cb := range callbacks {
		invokeSafely(cb, v)
	}
}

func invokeSafely(cb func(Value), v Value) {
	defer func() {
		if r := recover(); r != nil {
			entityLog.Errorf("subscriber callback panicked: %v", r)
		}
	}()
	cb(v)
}
