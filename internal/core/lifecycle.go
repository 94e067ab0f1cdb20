package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable receives the module's section of the config file, e.g. the
// node under "catalog.bttv". Called right after New.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner fills defaults, opens resources and publishes services such
// as a catalog store or credentials to the shared AppContext.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator checks the provisioned module without side effects.
type Validator interface {
	Validate() error
}

// Starter begins background work: chat connections, catalog warm-up, the
// overlay hub. Start must not block.
type Starter interface {
	Start() error
}

// Stopper releases what Start or Provision acquired. Modules stop in
// reverse load order.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Reloader picks up a changed config file without a restart. The context
// carries the new module configs and the wall settings.
type Reloader interface {
	Reload(ctx *AppContext) error
}
