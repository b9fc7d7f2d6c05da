// Package logger records what happened in a shell session as newline delimited
// JSON events.
package logger
