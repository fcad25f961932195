package model

type EventKind int16

const (
	IncomingMessage EventKind = iota + 1 // [BUSINESS]
	MessageReceived                      // [BUSINESS] send receipt to the sender
	ErrorNotice                          // [SYSTEM]
)

type EventPriority int32

const (
	PriorityLow    EventPriority = 10
	PriorityNormal EventPriority = 20
	PriorityHigh   EventPriority = 30
)

// Eventer defines the contract for all data packets flowing to client sessions.
type Eventer interface {
	GetID() string
	GetKind() EventKind
	GetUserID() string
	GetPriority() EventPriority
	GetOccurredAt() int64
	GetPayload() any
	GetCached() any
	SetCached(any)
}
