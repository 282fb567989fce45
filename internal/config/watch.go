package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch re-decodes the configuration whenever viper sees the config file
// written or created, and hands the result to onChange. An invalid file
// produces a nil Config and the validation error; callers keep their
// previous configuration in that case.
//
// The viper instance must already have a config file set.
func Watch(v *viper.Viper, onChange func(*Config, error)) {
	v.OnConfigChange(changeHandler(v, onChange))
	v.WatchConfig()
}

func changeHandler(v *viper.Viper, onChange func(*Config, error)) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		if !reloadable(e) {
			return
		}
		onChange(decode(v))
	}
}

// reloadable reports whether a file event can carry new content. Editors
// that save by rename produce a Create on the new file.
func reloadable(e fsnotify.Event) bool {
	return e.Has(fsnotify.Write) || e.Has(fsnotify.Create)
}
