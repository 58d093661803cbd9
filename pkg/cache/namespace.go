package cache

import (
	"strings"
	"sync"
)

// Namespace is a resource type whose entries are invalidated together
type Namespace string

const (
	NamespaceDoctors        Namespace = "doctors"
	NamespaceSchedules      Namespace = "schedules"
	NamespaceHolidays       Namespace = "holidays"
	NamespaceUnavailability Namespace = "unavailability"
	NamespaceUserEvents     Namespace = "user_events"
	NamespaceSwingDetails   Namespace = "swing_details"
)

// Key builds "<namespace>_<part>_<part>...". With no parts the key is the namespace itself.
func (n Namespace) Key(parts ...string) string {
	if len(parts) == 0 {
		return string(n)
	}
	return string(n) + "_" + strings.Join(parts, "_")
}

// Owns reports whether key equals the namespace or starts with "<namespace>_"
func (n Namespace) Owns(key string) bool {
	return key == string(n) || strings.HasPrefix(key, string(n)+"_")
}

// Registry is the set of namespaces the fetcher manages. Keys outside every
// registered namespace are never touched by ClearCache or PurgeExpired.
type Registry struct {
	mu         sync.RWMutex
	namespaces []Namespace
}

func NewRegistry(namespaces ...Namespace) *Registry {
	r := &Registry{}
	for _, n := range namespaces {
		r.Register(n)
	}
	return r
}

// DefaultRegistry holds every cached resource type of the scheduling API
func DefaultRegistry() *Registry {
	return NewRegistry(
		NamespaceDoctors,
		NamespaceSchedules,
		NamespaceHolidays,
		NamespaceUnavailability,
		NamespaceUserEvents,
		NamespaceSwingDetails,
	)
}

func (r *Registry) Register(n Namespace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.namespaces {
		if existing == n {
			return
		}
	}
	r.namespaces = append(r.namespaces, n)
}

func (r *Registry) Namespaces() []Namespace {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Namespace(nil), r.namespaces...)
}

// Owner returns the registered namespace a key belongs to. When several match
// ("user" and "user_events" both own "user_events_x"), the longest name wins.
func (r *Registry) Owner(key string) (Namespace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var owner Namespace
	found := false
	for _, n := range r.namespaces {
		if n.Owns(key) && len(n) > len(owner) {
			owner = n
			found = true
		}
	}
	return owner, found
}
