package fabenv

// NodeType tags a discovered network node by role.
type NodeType string

const (
	NodePeer     NodeType = "peer"
	NodeOrderer  NodeType = "orderer"
	NodeCA       NodeType = "ca"
	NodeCouchDB  NodeType = "couchdb"
	NodeLogspout NodeType = "logspout"
)

// Node is a network component discovered from the node registry. Nodes
// are derived from running containers; the lifecycle controller only
// queries them, it never owns them.
type Node struct {
	Type          NodeType `json:"type"`
	Name          string   `json:"name"`
	APIURL        string   `json:"api_url,omitempty"`
	ChaincodeURL  string   `json:"chaincode_url,omitempty"`
	ContainerName string   `json:"container_name,omitempty"`
}
