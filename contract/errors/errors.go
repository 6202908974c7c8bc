package errors

// Error codes for the broker contracts. Keep stable; used across channels and the factory.
const (
	ErrCodeChannelTypeExists   = "eventbroker.channel_type_exists"
	ErrCodeInvalidConfig       = "eventbroker.invalid_config"
	ErrCodeConnectFailed       = "eventbroker.connect_failed"
	ErrCodePublishFailed       = "eventbroker.publish_failed"
	ErrCodeSerializationFailed = "eventbroker.serialization_failed"
	ErrCodeUnsupportedProtocol = "eventbroker.unsupported_protocol"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrChannelTypeExists   = Code(ErrCodeChannelTypeExists)
	ErrInvalidConfig       = Code(ErrCodeInvalidConfig)
	ErrConnectFailed       = Code(ErrCodeConnectFailed)
	ErrPublishFailed       = Code(ErrCodePublishFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
	ErrUnsupportedProtocol = Code(ErrCodeUnsupportedProtocol)
)
