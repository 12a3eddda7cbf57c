package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/clientcmd/api"
)

// KubeconfigLoader handles loading and merging kubeconfig files. It is used
// for pre-flight sanity checks only; all cluster operations go through the
// external CLI.
type KubeconfigLoader struct {
	paths        []string
	explicitPath string
	loadedConfig *api.Config
	configLoaded bool
}

// NewKubeconfigLoader creates a new kubeconfig loader.
// It checks sources in the following order:
// 1. Explicit path (--kubeconfig flag)
// 2. KUBECONFIG environment variable (supports multiple ':'-separated paths)
// 3. Default ~/.kube/config
func NewKubeconfigLoader(explicitPath string) *KubeconfigLoader {
	loader := &KubeconfigLoader{
		explicitPath: explicitPath,
		paths:        make([]string, 0),
	}

	if explicitPath != "" {
		if expandedPath, err := expandPath(explicitPath); err == nil {
			loader.paths = append(loader.paths, expandedPath)
		}
		return loader
	}

	if kubeconfigEnv := os.Getenv("KUBECONFIG"); kubeconfigEnv != "" {
		separator := ":"
		if os.PathSeparator == '\\' { // Windows
			separator = ";"
		}

		for _, path := range strings.Split(kubeconfigEnv, separator) {
			path = strings.TrimSpace(path)
			if path == "" {
				continue
			}
			if expandedPath, err := expandPath(path); err == nil {
				loader.paths = append(loader.paths, expandedPath)
			}
		}
	}

	if len(loader.paths) == 0 {
		home, err := os.UserHomeDir()
		if err == nil {
			loader.paths = append(loader.paths, filepath.Join(home, ".kube", "config"))
		}
	}

	return loader
}

// Load returns the merged kubeconfig from all sources
func (l *KubeconfigLoader) Load() (*api.Config, error) {
	if l.configLoaded && l.loadedConfig != nil {
		return l.loadedConfig, nil
	}

	if len(l.paths) == 0 {
		return nil, fmt.Errorf("no kubeconfig paths available")
	}

	loadingRules := &clientcmd.ClientConfigLoadingRules{
		Precedence: l.paths,
	}

	config, err := loadingRules.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	if config == nil {
		return nil, fmt.Errorf("kubeconfig is empty")
	}

	l.loadedConfig = config
	l.configLoaded = true

	return config, nil
}

// GetContexts returns all available context names
func (l *KubeconfigLoader) GetContexts() ([]string, error) {
	config, err := l.Load()
	if err != nil {
		return nil, err
	}

	contexts := make([]string, 0, len(config.Contexts))
	for name := range config.Contexts {
		contexts = append(contexts, name)
	}

	return contexts, nil
}

// GetCurrentContext returns the current context name
func (l *KubeconfigLoader) GetCurrentContext() (string, error) {
	config, err := l.Load()
	if err != nil {
		return "", err
	}

	return config.CurrentContext, nil
}

// ContextExists reports whether the named context is present in the
// merged kubeconfig
func (l *KubeconfigLoader) ContextExists(name string) (bool, error) {
	config, err := l.Load()
	if err != nil {
		return false, err
	}

	_, exists := config.Contexts[name]
	return exists, nil
}

// GetPaths returns the kubeconfig paths being used
func (l *KubeconfigLoader) GetPaths() []string {
	return l.paths
}

// expandPath expands ~ to home directory and evaluates environment variables
func expandPath(path string) (string, error) {
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	return filepath.Clean(path), nil
}
