// Package containerizer brings units up and down on the local container
// runtime.
//
// A unit is handed over as a Target: its ID and the directory of its
// persisted descriptor store. The runtime never sees the definition the
// descriptor came from, so a unit can be re-applied from disk at any time.
//
// # Compose
//
// ComposeRuntime drives "<binary> compose" with the unit ID as the project
// name, so a unit keeps its containers across snapshots regardless of which
// snapshot directory its store lives in:
//
//	<binary> compose --project-name <id> --file docker-compose.yml pull
//	<binary> compose --project-name <id> --file docker-compose.yml up --detach --remove-orphans
//	<binary> compose --project-name <id> --file docker-compose.yml down --remove-orphans
//
// Both docker and podman provide the compose subcommand; see NewRuntime.
//
// # Thread Safety
//
// Runtimes are safe for concurrent use. Each call runs in its own
// execution context.
package containerizer
