package config

import (
	"reflect"
	"strings"

	"c3dl/core/catalog"
	"c3dl/core/logger"
	"c3dl/core/replica"
	"c3dl/core/transfer"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Mirror holds configuration for the mirror run itself.
	Mirror MirrorConfig `mapstructure:"mirror"`
	// Transfer holds configuration for the HTTP transfer engine.
	Transfer transfer.Config `mapstructure:"transfer"`
	// Catalog holds configuration for the download history catalog.
	Catalog catalog.Config `mapstructure:"catalog"`
	// Replica holds configuration for the optional object-storage replica.
	Replica replica.Config `mapstructure:"replica"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
}

// MirrorConfig holds the run-level settings of a mirror session.
type MirrorConfig struct {
	// Event is the congress identifier, e.g. "39c3".
	Event string `mapstructure:"event" default:""`
	// BaseDir is the directory the event tree is created under.
	BaseDir string `mapstructure:"base_dir" default:"."`
	// Quality selects one of the format presets (hd, sd, webm, webm-sd, mp3, opus).
	Quality string `mapstructure:"quality" default:"hd"`
	// WaitSeconds is the pause between reconciliation cycles in loop mode.
	WaitSeconds int `mapstructure:"wait_seconds" default:"300"`
	// Concurrency is the number of simultaneous downloads.
	Concurrency int `mapstructure:"concurrency" default:"1"`
	// Cleanup enables pruning of relive recordings once a release exists.
	Cleanup bool `mapstructure:"cleanup" default:"true"`
	// StreamBase is the base URL of the live streaming site.
	StreamBase string `mapstructure:"stream_base" default:"https://streaming.media.ccc.de"`
	// CDNBase is the base URL relive recordings are served from.
	CDNBase string `mapstructure:"cdn_base" default:"https://cdn.c3voc.de/relive"`
	// MediaBase is the base URL of the release media site.
	MediaBase string `mapstructure:"media_base" default:"https://media.ccc.de"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. MIRROR_EVENT -> mirror.event)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
