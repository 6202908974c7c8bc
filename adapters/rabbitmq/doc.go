/*
Package rabbitmq provides the queue-backed event channel.
Each publish opens a fresh AMQP connection, declares the target queue durable,
sends the JSON-encoded event to the default exchange, and closes the
connection. TLS for the non-URL connection path is derived from the
RABBITMQ_SSL_* environment variables.
*/
package rabbitmq
