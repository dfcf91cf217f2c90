package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// WatchFeatureFlags re-reads the config file whenever it changes on disk and
// passes the current FEATURE_FLAGS value to onChange. It returns false when
// no config file was loaded, in which case there is nothing to watch.
func WatchFeatureFlags(onChange func(flags string)) bool {
	if viper.ConfigFileUsed() == "" {
		return false
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		if !isContentChange(e) {
			return
		}
		slog.Info("config file changed, reloading feature flags", "file", e.Name)
		onChange(viper.GetString("FEATURE_FLAGS"))
	})
	viper.WatchConfig()
	return true
}

func isContentChange(e fsnotify.Event) bool {
	return e.Has(fsnotify.Write) || e.Has(fsnotify.Create)
}
