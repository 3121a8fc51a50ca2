// Package config provides configuration management for the go-otbr agent.
//
// # Configuration Directories
//
// Everything lives under one base directory, $HOME/.go-otbr by default:
//
// config.yaml: The agent's configuration file, auto-created with defaults on
// first run. Values can be overridden with an explicit --config flag, and the
// radio URL on the command line always wins over the configured one.
//   - Default location: $HOME/.go-otbr/config.yaml
//   - Purpose: Thread interface settings, control server, NTP check
//
// DataDir: Where stack drivers persist their state, most importantly the
// operational dataset a commissioned node needs to resume its network after
// a restart. The directory is created on demand by the driver.
//   - Default location: $HOME/.go-otbr/data
//   - Purpose: Per-interface settings files, key material (mode 0600)
package config
