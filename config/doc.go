// Package config loads multiagent settings.
//
// Values come from built-in defaults, a dotenv file (".env" by default,
// loaded with joho/godotenv without overriding existing variables), an
// optional config file and the process environment, read through viper.
// Environment variable names are the upper-cased setting keys, for example
// LLM_PROVIDER, GOOGLE_API_KEY or MEMORY_MAX_MESSAGES.
//
//	s, err := config.Load(config.WithConfigFile("multiagent.yaml"))
//
// Most packages read the cached process-wide settings through Get.
package config
