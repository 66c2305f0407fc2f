// Package scaffold materializes a runtime's on-disk configuration: the
// compose file describing the network, the lifecycle scripts the
// controller executes, a seeded connection profile and the wallets
// tree. Implements runtime.Scaffolder.
package scaffold

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"fabenv"

	compose "github.com/compose-spec/compose-go/v2/types"
)

//go:embed templates
var templates embed.FS

// Script templates use [[ ]] delimiters so docker's own {{ }} format
// strings survive verbatim.
var scriptTemplates = template.Must(
	template.New("scripts").Delims("[[", "]]").ParseFS(templates, "templates/*.tmpl"),
)

// Generator writes runtime scaffolding. Zero value is ready to use.
type Generator struct{}

type templateData struct {
	Name       string
	DockerName string
	Ports      fabenv.Ports
}

// Generate populates dir with everything the lifecycle scripts need.
// dir must already exist; partial output on failure is acceptable, the
// caller retries by re-creating.
func (Generator) Generate(_ context.Context, dir, name, dockerName string, ports fabenv.Ports) error {
	if !ports.Assigned() {
		return fmt.Errorf("no port assignment for runtime %q", name)
	}

	data := templateData{Name: name, DockerName: dockerName, Ports: ports}

	if err := writeCompose(dir, data); err != nil {
		return err
	}
	if err := writeScripts(dir, data); err != nil {
		return err
	}
	if err := writeGatewayProfile(dir, data); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dir, "wallets", "Org1"), 0o755); err != nil {
		return fmt.Errorf("create wallets directory: %w", err)
	}
	return nil
}

func writeCompose(dir string, data templateData) error {
	project := composeProject(data)
	out, err := project.MarshalYAML()
	if err != nil {
		return fmt.Errorf("marshal compose project: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docker-compose.yml"), out, 0o644); err != nil {
		return fmt.Errorf("write compose file: %w", err)
	}
	return nil
}

func composeProject(data templateData) *compose.Project {
	p := data.Ports
	services := compose.Services{
		"orderer.example.com": {
			Name:          "orderer.example.com",
			Image:         "hyperledger/fabric-orderer:2.5",
			ContainerName: data.DockerName + "_orderer.example.com",
			Ports:         []compose.ServicePortConfig{hostPort(p.Orderer, 7050)},
		},
		"peer0.org1.example.com": {
			Name:          "peer0.org1.example.com",
			Image:         "hyperledger/fabric-peer:2.5",
			ContainerName: data.DockerName + "_peer0.org1.example.com",
			Ports: []compose.ServicePortConfig{
				hostPort(p.PeerRequest, 7051),
				hostPort(p.PeerChaincode, 7052),
			},
			DependsOn: compose.DependsOnConfig{
				"orderer.example.com": compose.ServiceDependency{Condition: compose.ServiceConditionStarted, Required: true},
				"couchdb":             compose.ServiceDependency{Condition: compose.ServiceConditionStarted, Required: true},
			},
		},
		"ca.org1.example.com": {
			Name:          "ca.org1.example.com",
			Image:         "hyperledger/fabric-ca:1.5",
			ContainerName: data.DockerName + "_ca.org1.example.com",
			Ports:         []compose.ServicePortConfig{hostPort(p.CertificateAuthority, 7054)},
		},
		"couchdb": {
			Name:          "couchdb",
			Image:         "couchdb:3.3",
			ContainerName: data.DockerName + "_couchdb",
			Ports:         []compose.ServicePortConfig{hostPort(p.CouchDB, 5984)},
		},
		"logspout": {
			Name:          "logspout",
			Image:         "gliderlabs/logspout:latest",
			ContainerName: data.DockerName + "_logspout",
			Ports:         []compose.ServicePortConfig{hostPort(p.Logs, 80)},
			Volumes: []compose.ServiceVolumeConfig{{
				Type:   compose.VolumeTypeBind,
				Source: "/var/run/docker.sock",
				Target: "/var/run/docker.sock",
			}},
		},
	}
	return &compose.Project{Name: data.DockerName, Services: services}
}

func hostPort(published, target int) compose.ServicePortConfig {
	return compose.ServicePortConfig{
		Mode:      "ingress",
		Target:    uint32(target),
		Published: fmt.Sprintf("%d", published),
		Protocol:  "tcp",
	}
}

func writeScripts(dir string, data templateData) error {
	entries, err := fs.ReadDir(templates, "templates")
	if err != nil {
		return fmt.Errorf("read script templates: %w", err)
	}
	for _, entry := range entries {
		script := strings.TrimSuffix(entry.Name(), ".tmpl")
		var buf strings.Builder
		if err := scriptTemplates.ExecuteTemplate(&buf, entry.Name(), data); err != nil {
			return fmt.Errorf("render script %q: %w", script, err)
		}
		if err := os.WriteFile(filepath.Join(dir, script), []byte(buf.String()), 0o755); err != nil {
			return fmt.Errorf("write script %q: %w", script, err)
		}
	}
	return nil
}

func writeGatewayProfile(dir string, data templateData) error {
	profile := map[string]any{
		"name":    data.Name,
		"version": "1.0.0",
		"client": map[string]any{
			"organization": "Org1",
		},
		"organizations": map[string]any{
			"Org1": map[string]any{
				"mspid":                  "Org1MSP",
				"peers":                  []string{"peer0.org1.example.com"},
				"certificateAuthorities": []string{"ca.org1.example.com"},
			},
		},
		"peers": map[string]any{
			"peer0.org1.example.com": map[string]any{
				"url": fmt.Sprintf("grpc://localhost:%d", data.Ports.PeerRequest),
			},
		},
		"certificateAuthorities": map[string]any{
			"ca.org1.example.com": map[string]any{
				"url":    fmt.Sprintf("http://localhost:%d", data.Ports.CertificateAuthority),
				"caName": "ca.org1.example.com",
			},
		},
	}

	out, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal connection profile: %w", err)
	}
	gatewaysDir := filepath.Join(dir, "gateways")
	if err := os.MkdirAll(gatewaysDir, 0o755); err != nil {
		return fmt.Errorf("create gateways directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(gatewaysDir, data.Name+".json"), out, 0o644); err != nil {
		return fmt.Errorf("write connection profile: %w", err)
	}
	return nil
}
