package broker

// Event is one structured application event: an unordered mapping of string
// keys to JSON-serializable values. Events are owned by the caller and no
// channel retains a reference to one after Publish returns.
type Event map[string]any

// SenderIDKey is the conventional event field identifying the originating
// conversation/sender. The SQL channel indexes on it.
const SenderIDKey = "sender_id"

// SenderID returns the event's sender identifier if the field is present
// and holds a string.
func (e Event) SenderID() (string, bool) {
	v, ok := e[SenderIDKey]
	if !ok {
		return "", false
	}

	s, ok := v.(string)

	return s, ok
}
