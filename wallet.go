package fabenv

// Wallet is a named credential store found under the runtime's wallets
// directory.
type Wallet struct {
	Name string `json:"name"`
}

// Identity is a single credential inside a wallet. Certificate and
// PrivateKey hold PEM text; the on-disk representation stores them
// base64-encoded.
type Identity struct {
	Name        string `json:"name"`
	MSPID       string `json:"msp_id"`
	Certificate string `json:"cert"`
	PrivateKey  string `json:"private_key"`
}
