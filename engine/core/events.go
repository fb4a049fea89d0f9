package core

import "sync"

type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01
	// Keyboard key pressed. Data is *KeyEvent.
	EVENT_CODE_KEY_PRESSED EventCode = 0x02
	// Keyboard key released. Data is *KeyEvent.
	EVENT_CODE_KEY_RELEASED EventCode = 0x03
	// Mouse button pressed. Data is *MouseEvent.
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04
	// Mouse button released. Data is *MouseEvent.
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05
	// Mouse moved. Data is *MouseEvent.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06
	// Mouse wheel scrolled. Data is *MouseEvent.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07
	// Resized/resolution changed from the OS. Data is *SystemEvent.
	EVENT_CODE_RESIZED EventCode = 0x08

	MAX_EVENT_CODE EventCode = 0xFF
)

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type FnOnEvent func(context EventContext)

type eventSystemState struct {
	mu         sync.RWMutex
	registered map[EventCode][]FnOnEvent
	pending    chan EventContext
}

var onceEvent sync.Once
var eventInitialized bool = false
var eventState *eventSystemState = nil

func EventSystemInitialize() bool {
	onceEvent.Do(func() {
		eventState = &eventSystemState{
			registered: make(map[EventCode][]FnOnEvent),
			pending:    make(chan EventContext, 256),
		}
		eventInitialized = true
	})
	return eventInitialized
}

func EventSystemShutdown() error {
	if !eventInitialized {
		return nil
	}
	eventState.mu.Lock()
	eventState.registered = make(map[EventCode][]FnOnEvent)
	eventState.mu.Unlock()
	eventInitialized = false
	close(eventState.pending)
	return nil
}

// EventRegister subscribes a callback to the given code. Callbacks are
// invoked on the event-processing goroutine in registration order.
func EventRegister(code EventCode, onEvent FnOnEvent) bool {
	if !eventInitialized {
		return false
	}
	eventState.mu.Lock()
	eventState.registered[code] = append(eventState.registered[code], onEvent)
	eventState.mu.Unlock()
	return true
}

// EventFire queues an event for processing. Fires are non-blocking; if the
// queue is full the event is dropped with a warning.
func EventFire(context EventContext) bool {
	if !eventInitialized {
		return false
	}
	select {
	case eventState.pending <- context:
		return true
	default:
		LogWarn("event queue full, dropping event code %d", context.Type)
		return false
	}
}

// ProcessEvents drains the pending queue until the event system shuts down.
// Meant to run as a dedicated goroutine started by the engine.
func ProcessEvents() {
	for context := range eventState.pending {
		eventState.mu.RLock()
		callbacks := eventState.registered[context.Type]
		eventState.mu.RUnlock()
		for _, cb := range callbacks {
			cb(context)
		}
	}
}
