package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/kiranraj/sredeploy/internal/util"
)

const (
	defaultConfigName = ".sredeploy"
	defaultConfigDir  = ".sredeploy"
)

// Supported target environments
const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Manager handles sredeploy configuration
type Manager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		viper:      viper.New(),
		config:     &Config{},
	}
}

// Load loads the configuration from file. A missing file is not an error;
// defaults are applied either way.
func (m *Manager) Load() (*Config, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		// Check ~/.sredeploy/config.yaml, then ~/.sredeploy.yaml
		m.viper.AddConfigPath(filepath.Join(home, defaultConfigDir))
		m.viper.AddConfigPath(home)
		m.viper.SetConfigName(defaultConfigName)
		m.viper.SetConfigType("yaml")
	}

	m.viper.SetEnvPrefix("SREDEPLOY")
	m.viper.AutomaticEnv()

	m.config = &Config{}

	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		m.applyDefaults()
		return m.config, nil
	}

	if err := m.viper.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	m.applyDefaults()

	if err := m.config.Validate(); err != nil {
		return nil, err
	}

	return m.config, nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// applyDefaults sets default values for anything the file left unset
func (m *Manager) applyDefaults() {
	c := m.config
	if c == nil {
		return
	}

	if c.Environment == "" {
		c.Environment = EnvDev
	}

	if c.Paths.ProjectDir == "" {
		c.Paths.ProjectDir = "."
	}
	if c.Paths.KubernetesDir == "" {
		c.Paths.KubernetesDir = filepath.Join(c.Paths.ProjectDir, "kubernetes")
	}
	if c.Paths.MonitoringDir == "" {
		c.Paths.MonitoringDir = filepath.Join(c.Paths.KubernetesDir, "monitoring")
	}

	if c.Cluster.Memory == 0 {
		c.Cluster.Memory = 4096
	}
	if c.Cluster.CPUs == 0 {
		c.Cluster.CPUs = 2
	}
	if c.Cluster.Driver == "" {
		c.Cluster.Driver = "docker"
	}
	if c.Cluster.StartTimeout == 0 {
		c.Cluster.StartTimeout = 60 * time.Second
	}
	if c.Cluster.PollInterval == 0 {
		c.Cluster.PollInterval = 5 * time.Second
	}
	if c.Cluster.Context == "" {
		c.Cluster.Context = "minikube"
	}

	if c.Build.ImageTag == "" {
		c.Build.ImageTag = "react-sre-app:latest"
	}
	if c.Build.Timeout == 0 {
		c.Build.Timeout = 10 * time.Minute
	}

	if c.Monitoring.Namespace == "" {
		c.Monitoring.Namespace = "monitoring"
	}

	if c.Readiness.Interval == 0 {
		c.Readiness.Interval = 10 * time.Second
	}
	if c.Readiness.Deadline == 0 {
		c.Readiness.Deadline = 5 * time.Minute
	}
	if c.Readiness.MinReplicas == 0 {
		c.Readiness.MinReplicas = 1
	}
	if c.Readiness.Namespace == "" {
		c.Readiness.Namespace = "react-sre-app"
	}
	if c.Readiness.Selector == "" {
		c.Readiness.Selector = "app=react-sre-app"
	}

	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = 3
	}
	if c.Retry.Backoff == 0 {
		c.Retry.Backoff = 5 * time.Second
	}
	if c.Retry.StepTimeout == 0 {
		c.Retry.StepTimeout = 30 * time.Second
	}

	if c.Defaults.OutputFormat == "" {
		c.Defaults.OutputFormat = "table"
	}
}

// Validate checks cross-field invariants
func (c *Config) Validate() error {
	if c.Environment != EnvDev && c.Environment != EnvProd {
		return fmt.Errorf("%w: unknown environment %q (expected %s or %s)", util.ErrInvalidConfig, c.Environment, EnvDev, EnvProd)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("%w: retry attempts must be at least 1", util.ErrInvalidConfig)
	}
	if c.Readiness.Interval >= c.Readiness.Deadline {
		return fmt.Errorf("%w: readiness interval must be below the deadline", util.ErrInvalidConfig)
	}
	for _, tun := range c.Tunnels {
		if tun.Name == "" || tun.Target == "" {
			return fmt.Errorf("%w: tunnel entries need a name and a target", util.ErrInvalidConfig)
		}
	}
	return nil
}

// DefaultTunnels returns the built-in port-forward set for an environment:
// the application service plus the monitoring endpoints.
func DefaultTunnels(env string) []TunnelConfig {
	return []TunnelConfig{
		{
			Name:       "app",
			Namespace:  "react-sre-app",
			Target:     "svc/" + env + "-react-sre-app",
			LocalPort:  3000,
			RemotePort: 80,
		},
		{
			Name:       "prometheus",
			Namespace:  "monitoring",
			Target:     "svc/prometheus",
			LocalPort:  9090,
			RemotePort: 9090,
		},
		{
			Name:       "grafana",
			Namespace:  "monitoring",
			Target:     "svc/grafana",
			LocalPort:  8081,
			RemotePort: 3000,
		},
	}
}
