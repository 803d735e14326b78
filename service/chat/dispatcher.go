package chat

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(hs ...Handler) {
	for _, h := range hs {
		d.handlers[h.Event()] = h
	}
}

func (d *Dispatcher) Dispatch(ctx *Context, ev Event) error {
	h, ok := d.handlers[ev.EventName()]
	if !ok {
		return protoErr(CodeUnknownEvent, ev.EventName(), "no handler")
	}
	return h.Handle(ctx, ev)
}

