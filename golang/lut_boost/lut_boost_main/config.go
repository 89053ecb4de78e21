package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"reflect"
	"sort"
	"strings"
)

//envPrefix prefixes environment variables overriding config keys, e.g. LUTBOOST_FILENAME_MODEL.
const envPrefix = "LUTBOOST"

//Options are the command line flags of the tool.
type Options struct {
	Mode       string `mapstructure:"mode"`
	Config     string `mapstructure:"config"`
	Verbose    bool   `mapstructure:"verbose"`
	MemProfile string `mapstructure:"memprofile"`
}

func newEnvViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

//parseOptions reads flags, which take precedence over LUTBOOST_* variables.
func parseOptions(args []string) (Options, error) {
	flagSet := pflag.NewFlagSet("lut_boost_main", pflag.ContinueOnError)
	flagSet.String("mode", "predict", "one of "+strings.Join(modeNames(), ", "))
	flagSet.String("config", "", "a JSON or YAML config file for the mode")
	flagSet.Bool("verbose", false, "development logging at debug level")
	flagSet.String("memprofile", "", "write memory profile to `file`")
	if err := flagSet.Parse(args); err != nil {
		return Options{}, err
	}

	v := newEnvViper()
	for _, name := range []string{"mode", "config", "verbose", "memprofile"} {
		if err := v.BindPFlag(name, flagSet.Lookup(name)); err != nil {
			return Options{}, errors.Wrapf(err, "flag %s", name)
		}
	}

	var options Options
	if err := v.Unmarshal(&options); err != nil {
		return Options{}, errors.Wrap(err, "options")
	}
	return options, nil
}

//setDefaults registers every mapstructure key of the struct behind out with its current value,
//so that keys missing from the config file still pick up environment variables.
func setDefaults(v *viper.Viper, out interface{}) {
	value := reflect.ValueOf(out).Elem()
	for ind := 0; ind < value.NumField(); ind++ {
		if key := value.Type().Field(ind).Tag.Get("mapstructure"); key != "" {
			v.SetDefault(key, value.Field(ind).Interface())
		}
	}
}

//decodeConfig fills out from the config file, the environment and the values already in out,
//in this order of precedence. An empty srcConfig reads the environment only.
func decodeConfig(srcConfig string, out interface{}) error {
	v := newEnvViper()
	setDefaults(v, out)

	if srcConfig != "" {
		v.SetConfigFile(srcConfig)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config %s", srcConfig)
		}
	}
	if err := v.Unmarshal(out); err != nil {
		return errors.Wrapf(err, "decode config %s", srcConfig)
	}
	return nil
}

//requireKeys fails for every empty string among the named config values.
func requireKeys(values map[string]string) error {
	var missing []string
	for key, value := range values {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Errorf("missing config keys: %s", strings.Join(missing, ", "))
	}
	return nil
}
