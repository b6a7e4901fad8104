package input

import (
	"sync"

	"github.com/offlinefirst/macrorec/pkg/keys"
)

// pressedKeys pins the identifier a physical key had when it went down, so the
// matching release reports the same key even if the layout or modifier state
// changed in between.
type pressedKeys struct {
	mu   sync.Mutex
	down map[uint32]keys.Key
}

func (p *pressedKeys) press(code uint32, k keys.Key) keys.Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down == nil {
		p.down = make(map[uint32]keys.Key)
	}
	if held, ok := p.down[code]; ok {
		// Auto-repeat.
		return held
	}
	p.down[code] = k
	return k
}

func (p *pressedKeys) release(code uint32, k keys.Key) keys.Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	if held, ok := p.down[code]; ok {
		delete(p.down, code)
		return held
	}
	return k
}
