package planner

import (
	"fmt"

	"github.com/latticedb/lattice/pkg/catalog"
)

func errUnknownLogicalNode(node Logical) error {
	return fmt.Errorf("planner: no implement rule for logical node %T", node)
}

func errNoExecutablePlan(digest string) error {
	return fmt.Errorf("planner: no executable physical plan for logical tree %q", digest)
}

func errNoStoreBound(entity catalog.EntityName) error {
	return fmt.Errorf("planner: no Store bound in Context for partitioned scan over %s", entity)
}
