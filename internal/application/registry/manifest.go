package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultManifestFile 插件目录下的清单文件名
const DefaultManifestFile = "plugin.yaml"

// Manifest 插件清单
type Manifest struct {
	Name        string         `yaml:"name"`
	Entry       string         `yaml:"entry"`
	Description string         `yaml:"description"`
	Enabled     *bool          `yaml:"enabled"`
	Config      map[string]any `yaml:"config"`
}

// IsEnabled 未声明时默认启用
func (m *Manifest) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// ReadManifest 读取并解析清单
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m.Config == nil {
		m.Config = map[string]any{}
	}
	return &m, nil
}
