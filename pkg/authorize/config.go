package authorize

import "github.com/Alijeyrad/dentlab_backend/config"

const defaultModelPath = "casbin_model.conf"

// Config covers how the enforcer is built. Audit logging and the superadmin
// bypass are decorators chosen by the caller and are not part of it.
type Config struct {
	ModelPath string
	// PolicySync attaches the Postgres LISTEN/NOTIFY watcher so every
	// instance reloads after a policy write.
	PolicySync bool
}

func FromCentralConfig(c config.AuthorizationConfig) Config {
	cfg := Config{ModelPath: c.CasbinModelPath, PolicySync: c.PolicySyncEnabled}
	if cfg.ModelPath == "" {
		cfg.ModelPath = defaultModelPath
	}
	return cfg
}
