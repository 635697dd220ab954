// Package config loads the dockside configuration.
//
// Configuration is a single YAML file, by default
// ~/.config/dockside/config.yaml. Values missing from the file keep their
// defaults, and a missing file is equivalent to an empty one.
//
// # File format
//
//	stateDir: /var/lib/dockside
//	definitionsDir: services
//	sources:
//	  - url: https://git.example/fleet.git
//	    branch: main
//	  - https://git.example/edge.git     # shorthand, branch main
//	unitTimeout: 10m
//	concurrency: 0
//	compose:
//	  runtime: docker
//	  binary: docker
//	  pull: true
//	metrics:
//	  textfile: /var/lib/node_exporter/textfile/dockside.prom
//	history:
//	  enabled: true
//	  path: ""
//
// # Environment
//
// SOURCE_REPOS, a comma-separated list of source URLs, replaces the sources
// of the file. It is kept for hosts provisioned with the environment-only
// setup.
//
// # Validation
//
// Validate reports every problem at once as ValidationErrors.
package config
