package config

// KeyValue is a single config payload produced by a Source.
type KeyValue struct {
	Key    string
	Value  []byte
	Format string
}

// Source is a config source.
type Source interface {
	Load() ([]*KeyValue, error)
	Watch() (Watcher, error)
}

// Watcher reports changes of a Source. Next blocks until the source
// changed or the watcher is stopped.
type Watcher interface {
	Next() ([]*KeyValue, error)
	Stop() error
}
