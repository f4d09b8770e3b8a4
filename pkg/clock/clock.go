package clock

import (
	"sync"
	"time"
)

// Real провайдер текущего времени в часовом поясе сервиса
type Real struct {
	Location *time.Location
}

// NewReal создает провайдер времени; nil означает UTC
func NewReal(loc *time.Location) *Real {
	if loc == nil {
		loc = time.UTC
	}
	return &Real{Location: loc}
}

// Now возвращает текущее время
func (c *Real) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// Fixed провайдер времени для тестов
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed создает провайдер, всегда возвращающий t
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// Now возвращает зафиксированное время
func (c *Fixed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set переставляет время
func (c *Fixed) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance сдвигает время на d
func (c *Fixed) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
