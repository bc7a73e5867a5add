package zonefile

import (
	"log/slog"

	"gitlab.bluewillows.net/root/spfweaver/pkg/provider"
)

// Factory returns a provider.Factory for creating zonefile provider instances.
func Factory(logger *slog.Logger) provider.Factory {
	return func(name string, config map[string]string) (provider.Provider, error) {
		providerCfg, err := LoadConfigFromMap(name, config)
		if err != nil {
			return nil, err
		}

		return New(name, providerCfg, WithProviderLogger(logger))
	}
}
