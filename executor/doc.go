// Package executor runs task commands. The default executor spawns an
// AI CLI binary as a subprocess; API-backed executors send the command
// as a prompt to Anthropic or OpenAI instead. All executions are
// bounded by a timeout, 5 minutes unless configured otherwise.
package executor
