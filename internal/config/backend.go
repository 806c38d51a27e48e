package config

// ConfigBackend abstracts the persistent key/value store behind `minds
// config`. The default implementation is an XDG JSON file; tests substitute
// an in-memory map.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
