package pkgconfig

import (
	"io"
	"time"
)

// Config provides typed access to configuration values.
//
// Implementations decide where values come from (file, env, remote). Keys are
// dot-separated paths like "server.address.http".
type Config interface {
	io.Closer

	// GetInt returns the value for key as int64.
	GetInt(key string) int64

	// GetBool returns the value for key as bool.
	GetBool(key string) bool

	// GetFloat returns the value for key as float64.
	GetFloat(key string) float64

	// GetString returns the value for key as string.
	GetString(key string) string

	// GetDuration returns the value for key as a time.Duration.
	GetDuration(key string) time.Duration

	// GetBinary returns the value for key decoded from base64.
	GetBinary(key string) []byte

	// GetArray returns the value for key split by commas.
	GetArray(key string) []string

	// GetMap returns the value for key parsed from "k:v,k:v" pairs.
	GetMap(key string) map[string]string
}
