// Package config manages user-level settings stored at
// ~/.innerself-app/config.yaml. Every key can be overridden from the
// environment with the INNERSELF_APP_ prefix, dots becoming underscores
// (installer.command → INNERSELF_APP_INSTALLER_COMMAND).
package config
