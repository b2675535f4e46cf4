// Package config provides environment-based configuration of relayd.
//
// Loads from .env file (godotenv), maps to Config struct via go-simpler/env struct tags.
// Every variable has a default, so relayd starts with an empty environment.
package config
