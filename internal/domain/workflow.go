package domain

import (
	"errors"
	"strings"
)

var (
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrExecutionNotFound = errors.New("execution not found")
)

// NodeType is an open, platform-defined vocabulary. Only the two trigger
// types below carry meaning for correlation; everything else is opaque.
type NodeType string

const (
	// NodeTypeWebhookTrigger makes a workflow invocable over an inbound
	// HTTP path, configured via the node's "path" parameter.
	NodeTypeWebhookTrigger NodeType = "trigger.webhook"

	// NodeTypeWorkflowTrigger marks a workflow as callable from within
	// another workflow's execution.
	NodeTypeWorkflowTrigger NodeType = "trigger.workflow"
)

type Workflow struct {
	ID     string
	Name   string
	Active bool
	Nodes  []Node
}

type Node struct {
	Type       NodeType
	Name       string
	Parameters map[string]any
}

// WebhookPath returns the configured webhook path of a webhook trigger
// node, normalized to begin with a leading slash.
func (n Node) WebhookPath() (string, bool) {
	if n.Type != NodeTypeWebhookTrigger {
		return "", false
	}

	path, ok := n.Parameters["path"].(string)
	if !ok || path == "" {
		return "", false
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return path, true
}

// WebhookPaths returns every webhook trigger path declared by the
// workflow's nodes, each normalized to a leading slash.
func (w Workflow) WebhookPaths() []string {
	var paths []string

	for _, node := range w.Nodes {
		if path, ok := node.WebhookPath(); ok {
			paths = append(paths, path)
		}
	}

	return paths
}

// HasWorkflowTrigger reports whether the workflow can be started from
// another workflow's execution.
func (w Workflow) HasWorkflowTrigger() bool {
	for _, node := range w.Nodes {
		if node.Type == NodeTypeWorkflowTrigger {
			return true
		}
	}

	return false
}

func (w Workflow) GetNodeByName(name string) (Node, bool) {
	for _, node := range w.Nodes {
		if node.Name == name {
			return node, true
		}
	}

	return Node{}, false
}
