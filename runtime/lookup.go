package runtime

import (
	"context"
	"fmt"

	"fabenv"
)

// Nodes lists the network nodes currently known to the registry.
func (c *Controller) Nodes(ctx context.Context) ([]fabenv.Node, error) {
	nodes, err := c.registry.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return nodes, nil
}

// PeerChaincodeURL resolves the chaincode listen address of the first
// peer node in the registry.
func (c *Controller) PeerChaincodeURL(ctx context.Context) (string, error) {
	node, err := c.findNode(ctx, fabenv.NodePeer)
	if err != nil {
		return "", err
	}
	return node.ChaincodeURL, nil
}

// LogspoutURL resolves the endpoint of the log-collector node.
func (c *Controller) LogspoutURL(ctx context.Context) (string, error) {
	node, err := c.findNode(ctx, fabenv.NodeLogspout)
	if err != nil {
		return "", err
	}
	return node.APIURL, nil
}

// PeerContainerName resolves the container name of the first peer node.
func (c *Controller) PeerContainerName(ctx context.Context) (string, error) {
	node, err := c.findNode(ctx, fabenv.NodePeer)
	if err != nil {
		return "", err
	}
	return node.ContainerName, nil
}

func (c *Controller) findNode(ctx context.Context, t fabenv.NodeType) (fabenv.Node, error) {
	nodes, err := c.registry.Nodes(ctx)
	if err != nil {
		return fabenv.Node{}, fmt.Errorf("list nodes: %w", err)
	}
	for _, n := range nodes {
		if n.Type == t {
			return n, nil
		}
	}
	return fabenv.Node{}, fmt.Errorf("no %s node found for runtime %q", t, c.cfg.Name)
}
