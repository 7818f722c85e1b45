// Package app defines common runtime contracts shared by the forkctl
// subcommands (playbook run, balance report, simulated fork node).
//
// It lets cmd/forkctl start a component without depending on its concrete
// implementation.
package app

import "context"

// Runner represents a runnable application component.
type Runner interface {
	Run(ctx context.Context) error
}
