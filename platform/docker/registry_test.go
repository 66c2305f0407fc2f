package docker

import (
	"testing"

	"fabenv"

	"github.com/docker/docker/api/types/container"
)

func TestNodeFromContainer_PeerCarriesBothEndpoints(t *testing.T) {
	c := container.Summary{
		Names: []string{"/fabenv_peer0.org1.example.com"},
		Ports: []container.Port{
			{PrivatePort: 7051, PublicPort: 17051, Type: "tcp"},
			{PrivatePort: 7052, PublicPort: 17052, Type: "tcp"},
		},
	}

	node := nodeFromContainer("peer0.org1.example.com", c)

	if node.Type != fabenv.NodePeer {
		t.Fatalf("type = %q, want %q", node.Type, fabenv.NodePeer)
	}
	if node.ContainerName != "fabenv_peer0.org1.example.com" {
		t.Errorf("container name = %q", node.ContainerName)
	}
	if node.APIURL != "grpc://localhost:17051" {
		t.Errorf("api url = %q", node.APIURL)
	}
	if node.ChaincodeURL != "grpc://localhost:17052" {
		t.Errorf("chaincode url = %q", node.ChaincodeURL)
	}
}

func TestNodeFromContainer_UnpublishedPortLeavesURLEmpty(t *testing.T) {
	c := container.Summary{
		Names: []string{"/fabenv_ca.example.com"},
		Ports: []container.Port{{PrivatePort: 7054, Type: "tcp"}},
	}

	node := nodeFromContainer("ca.example.com", c)

	if node.Type != fabenv.NodeCA {
		t.Fatalf("type = %q, want %q", node.Type, fabenv.NodeCA)
	}
	if node.APIURL != "" {
		t.Errorf("api url = %q, want empty for unpublished port", node.APIURL)
	}
}

func TestNodeType_MapsComposeServices(t *testing.T) {
	cases := []struct {
		service string
		want    fabenv.NodeType
	}{
		{"peer0.org1.example.com", fabenv.NodePeer},
		{"orderer.example.com", fabenv.NodeOrderer},
		{"ca.example.com", fabenv.NodeCA},
		{"couchdb", fabenv.NodeCouchDB},
		{"logspout", fabenv.NodeLogspout},
		{"prometheus", fabenv.NodeType("prometheus")},
	}
	for _, tc := range cases {
		if got := nodeType(tc.service); got != tc.want {
			t.Errorf("nodeType(%q) = %q, want %q", tc.service, got, tc.want)
		}
	}
}

func TestNodeFromContainer_LogspoutMapsHTTPPort(t *testing.T) {
	c := container.Summary{
		Names: []string{"/fabenv_logspout"},
		Ports: []container.Port{{PrivatePort: 80, PublicPort: 17055, Type: "tcp"}},
	}

	node := nodeFromContainer("logspout", c)

	if node.APIURL != "http://localhost:17055" {
		t.Errorf("api url = %q", node.APIURL)
	}
}
