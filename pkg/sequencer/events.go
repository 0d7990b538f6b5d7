package sequencer

import (
	"fmt"
)

type EventType uint8

const (
	EventTypeNoteOn EventType = iota
	EventTypeNoteOff
	EventTypeFrequency
	EventTypeControl
)

func (t EventType) String() string {
	switch t {
	case EventTypeNoteOn:
		return "NoteOn"
	case EventTypeNoteOff:
		return "NoteOff"
	case EventTypeFrequency:
		return "Frequency"
	case EventTypeControl:
		return "Control"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
}

// Event is something to do to an instrument at the start of a buffer.
type Event interface {
	Type() EventType
	Tick() int64
	Apply(Instrument)
	String() string
}

type BaseEvent struct {
	At int64 // buffer index the event fires on
}

func (e BaseEvent) Tick() int64 {
	return e.At
}

type NoteOnEvent struct {
	BaseEvent
	Note int
}

func (e NoteOnEvent) Type() EventType {
	return EventTypeNoteOn
}

func (e NoteOnEvent) Apply(inst Instrument) {
	inst.NoteOn()
}

func (e NoteOnEvent) String() string {
	return fmt.Sprintf("NoteOn{note:%s, tick:%d}", NoteName(e.Note), e.At)
}

type NoteOffEvent struct {
	BaseEvent
	Note int
}

func (e NoteOffEvent) Type() EventType {
	return EventTypeNoteOff
}

func (e NoteOffEvent) Apply(inst Instrument) {
	inst.NoteOff()
}

func (e NoteOffEvent) String() string {
	return fmt.Sprintf("NoteOff{note:%s, tick:%d}", NoteName(e.Note), e.At)
}

type FrequencyEvent struct {
	BaseEvent
	Hz float64
}

func (e FrequencyEvent) Type() EventType {
	return EventTypeFrequency
}

func (e FrequencyEvent) Apply(inst Instrument) {
	inst.SetFrequency(e.Hz)
}

func (e FrequencyEvent) String() string {
	return fmt.Sprintf("Frequency{hz:%.2f, tick:%d}", e.Hz, e.At)
}

// ControlEvent runs arbitrary control code on the render goroutine.
type ControlEvent struct {
	BaseEvent
	Name string
	Fn   func()
}

func (e ControlEvent) Type() EventType {
	return EventTypeControl
}

func (e ControlEvent) Apply(Instrument) {
	if e.Fn != nil {
		e.Fn()
	}
}

func (e ControlEvent) String() string {
	return fmt.Sprintf("Control{%s, tick:%d}", e.Name, e.At)
}
