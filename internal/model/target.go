package model

import "sync"

// Target is anything an enemy can chase and hit. The local player satisfies
// it directly; remote players are represented by thin proxies that route
// TakeDamage and GainExperience through the network (see internal/mirror).
type Target interface {
	ID() string
	Position() Vec3
	TakeDamage(amount float64)
	GainExperience(amount float64)
	Level() int
}

// SimplePlayer is a minimal local Target implementation used by the server
// binary and by tests. The real game wraps its own player object instead.
type SimplePlayer struct {
	id string

	mu         sync.RWMutex
	position   Vec3
	health     float64
	maxHealth  float64
	experience float64
	level      int
}

// NewSimplePlayer creates a local player target.
func NewSimplePlayer(id string, pos Vec3, maxHealth float64, level int) *SimplePlayer {
	return &SimplePlayer{
		id:        id,
		position:  pos,
		health:    maxHealth,
		maxHealth: maxHealth,
		level:     level,
	}
}

// ID returns the stable player identifier.
func (p *SimplePlayer) ID() string { return p.id }

// Position returns current player position.
func (p *SimplePlayer) Position() Vec3 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

// SetPosition moves the player.
func (p *SimplePlayer) SetPosition(pos Vec3) {
	p.mu.Lock()
	p.position = pos
	p.mu.Unlock()
}

// TakeDamage reduces player health, floored at zero.
func (p *SimplePlayer) TakeDamage(amount float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health -= amount
	if p.health < 0 {
		p.health = 0
	}
}

// GainExperience adds experience.
func (p *SimplePlayer) GainExperience(amount float64) {
	p.mu.Lock()
	p.experience += amount
	p.mu.Unlock()
}

// Health returns current player health.
func (p *SimplePlayer) Health() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health
}

// Experience returns accumulated experience.
func (p *SimplePlayer) Experience() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.experience
}

// Level returns the player level (used as the loot level hint).
func (p *SimplePlayer) Level() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

// SetLevel sets the player level.
func (p *SimplePlayer) SetLevel(level int) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}
