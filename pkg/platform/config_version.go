package platform

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// CurrentConfigVersion is the config apiVersion this build writes.
const CurrentConfigVersion = "v1"

// supportedConfigVersions lists every apiVersion this build loads.
var supportedConfigVersions = []string{CurrentConfigVersion}

// PeekVersion reads apiVersion from raw YAML without parsing the rest.
// Missing or unreadable values mean the current version.
func PeekVersion(data []byte) string {
	var envelope struct {
		APIVersion string `yaml:"apiVersion"`
	}
	if err := yaml.Unmarshal(data, &envelope); err != nil || envelope.APIVersion == "" {
		return CurrentConfigVersion
	}
	return envelope.APIVersion
}

func checkVersion(version string) error {
	if !slices.Contains(supportedConfigVersions, version) {
		return fmt.Errorf("unsupported config apiVersion %q; supported versions: %s",
			version, strings.Join(supportedConfigVersions, ", "))
	}
	return nil
}
