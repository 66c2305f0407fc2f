package fabenv

// Ports is the fixed set of host ports assigned to the runtime at
// creation time. It is persisted as configuration and read-only
// afterwards except via explicit re-creation.
type Ports struct {
	Orderer              int `json:"orderer" yaml:"orderer"`
	PeerRequest          int `json:"peer_request" yaml:"peer-request"`
	PeerChaincode        int `json:"peer_chaincode" yaml:"peer-chaincode"`
	CertificateAuthority int `json:"certificate_authority" yaml:"certificate-authority"`
	CouchDB              int `json:"couchdb" yaml:"couchdb"`
	Logs                 int `json:"logs" yaml:"logs"`
}

// Assigned reports whether a port window has been assigned.
func (p Ports) Assigned() bool {
	return p.Orderer != 0
}
