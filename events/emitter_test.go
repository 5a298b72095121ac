package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitDeliversToTypedAndWildcardSubscribers(t *testing.T) {
	e := NewEmitter()
	var typed, all []EventType
	e.Subscribe(EventGameCreated, func(ev Event) { typed = append(typed, ev.Type) })
	e.SubscribeAll(func(ev Event) { all = append(all, ev.Type) })

	e.Emit(Event{Type: EventGameCreated})
	e.Emit(Event{Type: EventGameSettled})

	assert.Equal(t, []EventType{EventGameCreated}, typed)
	assert.Equal(t, []EventType{EventGameCreated, EventGameSettled}, all)
}

func TestEmitRecoversFromPanickingHandler(t *testing.T) {
	e := NewEmitter()
	called := false
	e.Subscribe(EventPayout, func(Event) { panic("boom") })
	e.Subscribe(EventPayout, func(Event) { called = true })

	assert.NotPanics(t, func() { e.Emit(Event{Type: EventPayout}) })
	assert.True(t, called)
}
