// Package docker discovers the runtime's network nodes from the Docker
// Engine. Implements runtime.Registry.
package docker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"fabenv"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	dockerfilters "github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

const (
	composeProjectLabel = "com.docker.compose.project"
	composeServiceLabel = "com.docker.compose.service"
)

// Registry lists the containers of one compose project and maps them to
// network nodes.
type Registry struct {
	cli     *client.Client
	project string
}

// NewRegistry creates a Registry for a compose project with a Docker
// client from the environment.
func NewRegistry(project string) (*Registry, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Registry{cli: cli, project: project}, nil
}

// NewRegistryFromClient wraps an existing Docker client.
func NewRegistryFromClient(cli *client.Client, project string) *Registry {
	return &Registry{cli: cli, project: project}
}

// Nodes returns the project's containers as typed network nodes, sorted
// by name for deterministic presentation.
func (r *Registry) Nodes(ctx context.Context) ([]fabenv.Node, error) {
	filters := dockerfilters.NewArgs()
	filters.Add("label", composeProjectLabel+"="+r.project)

	containers, err := r.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]fabenv.Node, 0, len(containers))
	for _, c := range containers {
		service := c.Labels[composeServiceLabel]
		if service == "" {
			continue
		}
		out = append(out, nodeFromContainer(service, c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Kill force-removes a container by name. Used for runaway chaincode
// containers. A container that is already gone is not an error.
func (r *Registry) Kill(ctx context.Context, name string) error {
	if err := r.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("remove container %q: %w", name, err)
	}
	return nil
}

// WaitReady blocks until the Docker daemon answers pings.
func (r *Registry) WaitReady(ctx context.Context) error {
	return WaitReady(ctx, r.cli)
}

// Close releases the Docker client.
func (r *Registry) Close() error {
	return r.cli.Close()
}

func nodeFromContainer(service string, c container.Summary) fabenv.Node {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	node := fabenv.Node{
		Type:          nodeType(service),
		Name:          service,
		ContainerName: name,
	}

	switch node.Type {
	case fabenv.NodePeer:
		node.APIURL = grpcURL(publishedPort(c, "7051/tcp"))
		node.ChaincodeURL = grpcURL(publishedPort(c, "7052/tcp"))
	case fabenv.NodeOrderer:
		node.APIURL = grpcURL(publishedPort(c, "7050/tcp"))
	case fabenv.NodeCA:
		node.APIURL = httpURL(publishedPort(c, "7054/tcp"))
	case fabenv.NodeCouchDB:
		node.APIURL = httpURL(publishedPort(c, "5984/tcp"))
	case fabenv.NodeLogspout:
		node.APIURL = httpURL(publishedPort(c, "80/tcp"))
	}
	return node
}

func nodeType(service string) fabenv.NodeType {
	switch {
	case strings.HasPrefix(service, "peer"):
		return fabenv.NodePeer
	case strings.HasPrefix(service, "orderer"):
		return fabenv.NodeOrderer
	case strings.HasPrefix(service, "ca"):
		return fabenv.NodeCA
	case strings.HasPrefix(service, "couchdb"):
		return fabenv.NodeCouchDB
	case service == "logspout":
		return fabenv.NodeLogspout
	default:
		return fabenv.NodeType(service)
	}
}

func publishedPort(c container.Summary, private nat.Port) uint16 {
	for _, p := range c.Ports {
		if p.Type == private.Proto() && p.PrivatePort == uint16(private.Int()) && p.PublicPort != 0 {
			return p.PublicPort
		}
	}
	return 0
}

func grpcURL(port uint16) string {
	if port == 0 {
		return ""
	}
	return fmt.Sprintf("grpc://localhost:%d", port)
}

func httpURL(port uint16) string {
	if port == 0 {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", port)
}
