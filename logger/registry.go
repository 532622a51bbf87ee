package logger

import "sync"

var components = struct {
	sync.Mutex
	byName map[string]*Logger
}{byName: map[string]*Logger{}}

// Register overrides the logger returned by Get for one component.
func Register(name string, l *Logger) {
	components.Lock()
	defer components.Unlock()
	components.byName[name] = l
}

// Get returns the logger for a component, deriving it from the global
// logger on first use.
func Get(name string) *Logger {
	components.Lock()
	defer components.Unlock()
	if l, ok := components.byName[name]; ok {
		return l
	}
	l := GetGlobalLogger().WithComponent(name)
	components.byName[name] = l
	return l
}

// Reset forgets every cached and registered component logger.
func Reset() {
	components.Lock()
	defer components.Unlock()
	clear(components.byName)
}
