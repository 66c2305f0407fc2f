package fabenv

// Gateway is a connection profile discovered under the runtime's
// gateways directory. Profiles are read-only and reconstructed fresh on
// every enumeration.
type Gateway struct {
	Name    string         `json:"name"`
	Path    string         `json:"path"`
	Profile map[string]any `json:"profile"`
}
