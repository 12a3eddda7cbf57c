package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a plan from a YAML file
func Load(path string) (Plan, error) {
	var p Plan

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read plan file: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse plan file %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return p, err
	}

	return p, nil
}

// Namespaces builds the plan that creates the application and monitoring
// namespaces. Namespaces must exist before any namespaced resource is
// applied, so every step is required.
func Namespaces(names ...string) Plan {
	p := Plan{Name: "namespaces"}
	for _, name := range names {
		p.Steps = append(p.Steps, Step{
			Name:        "namespace-" + name,
			Description: fmt.Sprintf("Create %s namespace", name),
			Namespace:   name,
			Required:    true,
		})
	}
	return p
}

// Monitoring builds the Prometheus + Grafana plan. The monitoring stack is
// an optional add-on: its failure should not block application delivery, so
// every step is best-effort.
func Monitoring(monitoringDir string) Plan {
	return Plan{
		Name: "monitoring",
		Steps: []Step{
			{
				Name:        "prometheus",
				Description: "Deploy Prometheus",
				File:        filepath.Join(monitoringDir, "prometheus-k8s.yaml"),
				Required:    false,
			},
			{
				Name:        "grafana",
				Description: "Deploy Grafana",
				File:        filepath.Join(monitoringDir, "grafana-k8s.yaml"),
				Required:    false,
			},
		},
	}
}

// Application builds the plan that applies the application's kustomize
// overlay for the given environment. Application delivery is the point of
// the whole run, so the step is required.
func Application(k8sDir, env string) Plan {
	return Plan{
		Name: "application",
		Steps: []Step{
			{
				Name:        "application-" + env,
				Description: fmt.Sprintf("Deploy application (%s overlay)", env),
				File:        filepath.Join(k8sDir, "overlays", env),
				Kustomize:   true,
				Required:    true,
				Timeout:     Duration(60 * time.Second),
			},
		},
	}
}
