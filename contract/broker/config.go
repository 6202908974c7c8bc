package broker

import "strconv"

// Config is the declarative record selecting a transport and supplying its
// constructor parameters. Type names a built-in transport or a
// caller-registered channel type; URL is the endpoint address; Kwargs
// carries free-form parameters forwarded verbatim to the chosen builder.
// A Config is owned by its caller and never mutated by the factory or the
// builders.
type Config struct {
	Type   string
	URL    string
	Kwargs map[string]any
}

// String returns the kwarg under key as a string, or def when the key is
// absent or not a string.
func (c *Config) String(key, def string) string {
	if c == nil {
		return def
	}

	if s, ok := c.Kwargs[key].(string); ok {
		return s
	}

	return def
}

// Int returns the kwarg under key coerced to an int, or def when the key
// is absent or not numeric. String values are parsed so records decoded
// from text configs behave the same as literal ones.
func (c *Config) Int(key string, def int) int {
	if c == nil {
		return def
	}

	switch v := c.Kwargs[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return def
}
