package repo

import "reflect"

// CommandSetProvider supplies a set of command Go types the repository
// should know about. Registration is additive: a newly added provider's
// types are introduced into the layout cache (and journaled if not
// already seen) without disturbing anything already installed.
type CommandSetProvider interface {
	CommandTypes() []reflect.Type
}

// EventSetProvider is CommandSetProvider's event-side counterpart.
type EventSetProvider interface {
	EventTypes() []reflect.Type
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}
