// defaults.go: default configuration values applied before reading config.yaml.
package conf

import "github.com/spf13/viper"

// setDefaultConfig registers default values for every configuration parameter.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Web server defaults
	viper.SetDefault("webserver.host", "")
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.debug", false)

	// Backing store defaults, SQLite in the working directory
	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "sigi.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "sigi")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "sigi")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	// Log defaults
	viper.SetDefault("log.path", "logs")
	viper.SetDefault("log.maxsizemb", 100)
}
