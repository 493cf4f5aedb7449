// Package config loads typed configuration structs from the process
// environment using github.com/caarlos0/env/v11 field tags, optionally
// seeding the environment from .env files via github.com/joho/godotenv.
//
//	var cfg scheduler.Config
//	if err := config.Load(&cfg, config.WithPrefix("EMAIL_")); err != nil {
//	    return err
//	}
//
// The default .env in the working directory is read once per process and
// silently ignored when absent; files passed with WithEnvFiles must exist.
package config
