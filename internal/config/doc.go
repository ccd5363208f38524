// Package config provides the YAML configuration file for wsgate.
//
// The file holds the server listener settings, the subprotocol policy, the
// optional message capture (with S3 archiving) and the log level. Command
// line flags override values loaded from the file.
//
// # Configuration File Location
//
// When no explicit path is given the file is looked up in
// platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/wsgate/config.yaml or $HOME/.config/wsgate/config.yaml
//   - macOS: $HOME/.config/wsgate/config.yaml
//   - Windows: %LOCALAPPDATA%\wsgate\config.yaml
//
// # Security
//
// S3 credentials are NEVER stored in this file. They are read from the
// AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	selector, err := cfg.Subprotocols.Selector()
//
// # Thread Safety
//
// Save is protected by a mutex and writes atomically (temporary file and
// rename).
package config
