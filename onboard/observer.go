package onboard

import "sync"

// Property keys published to observers.
const (
	KeySnapshot  = "data"
	KeyRunState  = "runState"
	KeyHandshake = "handshakeStatus"
	KeySetpoint  = "numberSetPoint"
	KeyLimitA    = "limitA"
	KeyLimitB    = "limitB"
	KeyControl   = "controlled"
	KeyGain      = "gain"
	KeyFault     = "fault"
)

// PropertyListener receives named field change notifications. Every
// listener sees every change exactly once, in publication order;
// ordering across listeners is unspecified.
type PropertyListener interface {
	PropertyChanged(key string, oldValue, newValue interface{})
}

// ListenerFunc adapts a plain function to PropertyListener.
type ListenerFunc func(key string, oldValue, newValue interface{})

func (f ListenerFunc) PropertyChanged(key string, oldValue, newValue interface{}) {
	f(key, oldValue, newValue)
}

type registration struct {
	id       int
	listener PropertyListener
}

type propertySupport struct {
	mu     sync.Mutex
	nextID int
	regs   []registration
}

// AddListener registers l and returns a handle for RemoveListener.
// Registration is safe at any time, including mid publication.
func (p *propertySupport) AddListener(l PropertyListener) (id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id = p.nextID
	p.regs = append(p.regs, registration{id, l})
	return
}

func (p *propertySupport) RemoveListener(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, reg := range p.regs {
		if reg.id == id {
			p.regs = append(p.regs[:i], p.regs[i+1:]...)
			return
		}
	}
}

func (p *propertySupport) fire(key string, oldValue, newValue interface{}) {
	p.mu.Lock()
	regs := make([]registration, len(p.regs))
	copy(regs, p.regs)
	p.mu.Unlock()

	for _, reg := range regs {
		reg.listener.PropertyChanged(key, oldValue, newValue)
	}
}
