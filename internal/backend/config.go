package backend

import (
	"fmt"

	"fanrevenue/internal/config"
)

// FromAppConfig builds the config for the primary repository.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	return fromAppConfig(appConfig, appConfig.DataBackend)
}

// MirrorFromAppConfig builds the config for the mirror repository. ok is
// false when no mirror is configured.
func MirrorFromAppConfig(appConfig *config.Config) (cfg Config, ok bool, err error) {
	if appConfig == nil {
		return Config{}, false, fmt.Errorf("app config is nil")
	}
	if appConfig.MirrorBackend == "" {
		return Config{}, false, nil
	}
	cfg, err = fromAppConfig(appConfig, appConfig.MirrorBackend)
	return cfg, err == nil, err
}

func fromAppConfig(appConfig *config.Config, backend string) (Config, error) {
	backendType := BackendType(backend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", backend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		DynamoTable: appConfig.DynamoTable,
		AWSRegion:   appConfig.AWSRegion,

		DataDirectory: appConfig.DataDir,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case DynamoBackend:
		if c.DynamoTable == "" {
			return fmt.Errorf("DynamoDB table is required for dynamo backend")
		}
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS region is required for dynamo backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data" if empty
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, DynamoBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
