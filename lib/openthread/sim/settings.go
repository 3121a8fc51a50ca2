package sim

import (
	"os"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/go-otbr/go-otbr/lib/config"
	"github.com/go-otbr/go-otbr/lib/openthread"
	"github.com/go-otbr/go-otbr/lib/util"
	"github.com/go-otbr/go-otbr/lib/util/logger"
)

// settingsFile holds everything the sim driver persists between runs.
type settingsFile struct {
	Dataset openthread.Dataset `yaml:"dataset"`
}

// settingsPath derives the per-interface settings file inside the data
// directory. The interface name comes from user configuration, so the
// derivation is sanitized against escaping DataDir.
func (i *Instance) settingsPath() (string, error) {
	return config.SanitizePath(i.cfg.DataDir, i.cfg.InterfaceName+"-settings.yaml")
}

// loadSettings restores a previously persisted dataset. Returns true when an
// active dataset was found. A missing file is a normal first boot.
func (i *Instance) loadSettings() (bool, error) {
	if i.cfg.DataDir == "" {
		return false, nil
	}
	path, err := i.settingsPath()
	if err != nil {
		return false, oops.Errorf("settings path: %w", err)
	}
	if !util.CheckFileExists(path) {
		return false, nil
	}

	// The file holds the PSKc. Tighten permissions left loose by an
	// earlier run or manual edits before reading it.
	secure, err := config.IsPathSecure(path, config.SecureFilePermissions)
	if err != nil {
		return false, oops.Errorf("check settings %s: %w", path, err)
	}
	if !secure {
		log.WithFields(logger.Fields{
			"at":   "(sim.Instance) loadSettings",
			"path": path,
		}).Warn("settings file was group or world accessible; tightening permissions")
		if err := config.SecureExistingPath(path, false); err != nil {
			return false, oops.Errorf("secure settings %s: %w", path, err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return false, oops.Errorf("read settings %s: %w", path, err)
	}

	var stored settingsFile
	if err := yaml.Unmarshal(raw, &stored); err != nil {
		return false, oops.Errorf("decode settings %s: %w", path, err)
	}

	if !stored.Dataset.Active {
		return false, nil
	}

	// Refuse corrupted key material rather than booting half-configured.
	if _, err := stored.Dataset.DecodeExtendedPanID(); err != nil {
		return false, oops.Errorf("settings %s: bad extended pan id: %w", path, err)
	}
	if _, err := stored.Dataset.DecodePskc(); err != nil {
		return false, oops.Errorf("settings %s: bad pskc: %w", path, err)
	}

	i.dataset = stored.Dataset
	log.WithFields(logger.Fields{
		"at":           "(sim.Instance) loadSettings",
		"path":         path,
		"network_name": stored.Dataset.NetworkName,
	}).Debug("restored persisted dataset")
	return true, nil
}

// saveSettings writes the dataset to disk. The file contains the PSKc, so it
// is not group or world readable.
func (i *Instance) saveSettings() error {
	if i.cfg.DataDir == "" {
		return nil
	}
	path, err := i.settingsPath()
	if err != nil {
		return oops.Errorf("settings path: %w", err)
	}
	if err := config.CreateSecureDirectory(i.cfg.DataDir); err != nil {
		return oops.Errorf("create data dir %s: %w", i.cfg.DataDir, err)
	}

	raw, err := yaml.Marshal(&settingsFile{Dataset: i.dataset})
	if err != nil {
		return oops.Errorf("encode settings: %w", err)
	}

	if err := config.WriteSecureFile(path, raw); err != nil {
		return oops.Errorf("write settings %s: %w", path, err)
	}
	return nil
}
