package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID (0-1023).
// Each process type runs with its own node ID so ids never collide.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	if err != nil {
		return fmt.Errorf("initializing snowflake node %d: %w", nodeID, err)
	}
	return nil
}

// New generates a time-ordered int64 id. Init must have been called.
func New() int64 {
	return node.Generate().Int64()
}

// NewBatchID returns the identifier of a collection batch. Batch ids are
// exposed to operators and the UI, so they use the uuid string form.
func NewBatchID() string {
	return uuid.NewString()
}
