// Package ids issues the human-facing identifiers: application reference
// codes and payment order ids.
package ids

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	ReferencePrefix = "VA-"
	OrderPrefix     = "ORD-"
)

type Generator struct {
	node *snowflake.Node
}

// New builds a generator for one process. node must be unique per running
// instance (0-1023).
func New(node int64) (*Generator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", node, err)
	}
	return &Generator{node: n}, nil
}

func (g *Generator) Reference() string {
	return ReferencePrefix + strings.ToUpper(g.node.Generate().Base36())
}

func (g *Generator) Order() string {
	return OrderPrefix + strings.ToUpper(g.node.Generate().Base36())
}
