package config

import "time"

// Config represents the sredeploy configuration file structure
type Config struct {
	// Environment is the target overlay environment (dev or prod)
	Environment string `yaml:"environment,omitempty" json:"environment,omitempty"`

	// Paths locates the project tree the deployment reads from
	Paths PathsConfig `yaml:"paths,omitempty" json:"paths,omitempty"`

	// Cluster controls the local cluster runtime
	Cluster ClusterConfig `yaml:"cluster,omitempty" json:"cluster,omitempty"`

	// Build controls the artifact build step
	Build BuildConfig `yaml:"build,omitempty" json:"build,omitempty"`

	// Monitoring controls the optional monitoring stack
	Monitoring MonitoringConfig `yaml:"monitoring,omitempty" json:"monitoring,omitempty"`

	// Readiness controls the post-apply workload wait
	Readiness ReadinessConfig `yaml:"readiness,omitempty" json:"readiness,omitempty"`

	// Retry is the default retry policy for apply steps
	Retry RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty"`

	// Tunnels are the port-forwards opened after a successful deploy
	// when forwarding is requested. Empty means use the built-in set
	// for the selected environment.
	Tunnels []TunnelConfig `yaml:"tunnels,omitempty" json:"tunnels,omitempty"`

	// Defaults contains output settings
	Defaults DefaultsConfig `yaml:"defaults,omitempty" json:"defaults,omitempty"`
}

// PathsConfig locates the project tree
type PathsConfig struct {
	// ProjectDir is the application source root (npm build runs here)
	ProjectDir string `yaml:"projectDir,omitempty" json:"projectDir,omitempty"`

	// KubernetesDir holds base manifests and overlays
	KubernetesDir string `yaml:"kubernetesDir,omitempty" json:"kubernetesDir,omitempty"`

	// MonitoringDir holds the monitoring manifests
	MonitoringDir string `yaml:"monitoringDir,omitempty" json:"monitoringDir,omitempty"`
}

// ClusterConfig controls the local cluster runtime
type ClusterConfig struct {
	// Memory is the cluster memory allocation in MB
	Memory int `yaml:"memory,omitempty" json:"memory,omitempty"`

	// CPUs is the cluster CPU allocation
	CPUs int `yaml:"cpus,omitempty" json:"cpus,omitempty"`

	// Driver is the cluster runtime driver
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty"`

	// StartTimeout bounds how long ensure-running waits for the control
	// plane to accept API calls
	StartTimeout time.Duration `yaml:"startTimeout,omitempty" json:"startTimeout,omitempty"`

	// PollInterval is the delay between status queries while waiting for
	// the cluster to come up
	PollInterval time.Duration `yaml:"pollInterval,omitempty" json:"pollInterval,omitempty"`

	// Context is the kubeconfig context the cluster is expected to
	// register; used for a pre-flight sanity check only
	Context string `yaml:"context,omitempty" json:"context,omitempty"`
}

// BuildConfig controls the artifact build step
type BuildConfig struct {
	// ImageTag is the tag for the built container image
	ImageTag string `yaml:"imageTag,omitempty" json:"imageTag,omitempty"`

	// Timeout bounds each build command
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// MonitoringConfig controls the optional monitoring stack
type MonitoringConfig struct {
	// Namespace is where the monitoring stack lives
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// ReadinessConfig controls the post-apply workload wait
type ReadinessConfig struct {
	// Interval is the poll interval
	Interval time.Duration `yaml:"interval,omitempty" json:"interval,omitempty"`

	// Deadline bounds the whole wait
	Deadline time.Duration `yaml:"deadline,omitempty" json:"deadline,omitempty"`

	// MinReplicas is how many running replicas count as ready
	MinReplicas int `yaml:"minReplicas,omitempty" json:"minReplicas,omitempty"`

	// Namespace is where the application pods live
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`

	// Selector is the label selector for the application pods
	Selector string `yaml:"selector,omitempty" json:"selector,omitempty"`
}

// RetryConfig is the default retry policy for apply steps
type RetryConfig struct {
	// Attempts is the total tries per step
	Attempts int `yaml:"attempts,omitempty" json:"attempts,omitempty"`

	// Backoff is the fixed wait between failed attempts
	Backoff time.Duration `yaml:"backoff,omitempty" json:"backoff,omitempty"`

	// StepTimeout bounds a single apply attempt
	StepTimeout time.Duration `yaml:"stepTimeout,omitempty" json:"stepTimeout,omitempty"`
}

// TunnelConfig describes one port-forward
type TunnelConfig struct {
	// Name identifies the forward in logs
	Name string `yaml:"name" json:"name"`

	// Namespace is the namespace of the target service
	Namespace string `yaml:"namespace" json:"namespace"`

	// Target is the resource reference, for example "svc/grafana"
	Target string `yaml:"target" json:"target"`

	// LocalPort is the local listen port
	LocalPort int `yaml:"localPort" json:"localPort"`

	// RemotePort is the service port to forward to
	RemotePort int `yaml:"remotePort" json:"remotePort"`
}

// DefaultsConfig contains output settings
type DefaultsConfig struct {
	// OutputFormat is the default output format (table, json, yaml)
	OutputFormat string `yaml:"outputFormat,omitempty" json:"outputFormat,omitempty"`

	// NoColor disables colored output
	NoColor bool `yaml:"noColor,omitempty" json:"noColor,omitempty"`
}
