/*
Package eventbroker resolves configuration records into ready-to-use event
channels. Built-in transports are pre-registered under their type names;
custom transports are added through Register. An unrecognized type degrades
to "no channel" with a logged warning so a misnamed transport never brings
down the host process.
*/
package eventbroker
