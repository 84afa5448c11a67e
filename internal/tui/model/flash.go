package model

import (
	"sync"
	"time"
)

// FlashLevel represents the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

// FlashMessage is a flash notification with a level and expiry.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	Expires time.Time
}

// Flash holds the current toast.
type Flash struct {
	mu      sync.RWMutex
	current FlashMessage
	now     func() time.Time
}

// Info sets an info-level flash message.
func (f *Flash) Info(msg string) {
	f.set(msg, FlashInfo, 5*time.Second)
}

// Warn sets a warn-level flash message.
func (f *Flash) Warn(msg string) {
	f.set(msg, FlashWarn, 8*time.Second)
}

// Err sets an error-level flash message.
func (f *Flash) Err(msg string) {
	f.set(msg, FlashErr, 10*time.Second)
}

// Set stores an info flash that expires after d.
func (f *Flash) Set(msg string, d time.Duration) {
	f.set(msg, FlashInfo, d)
}

func (f *Flash) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}

func (f *Flash) set(msg string, level FlashLevel, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = FlashMessage{Text: msg, Level: level, Expires: f.clock().Add(d)}
}

// Get returns the current flash message text, or empty if expired.
func (f *Flash) Get() string {
	if m := f.Message(); m != nil {
		return m.Text
	}
	return ""
}

// Message returns the current flash message, or nil if expired.
func (f *Flash) Message() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current.Text == "" || f.clock().After(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}
