package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	// DatabaseConfig holds the connection settings of one upstream store.
	DatabaseConfig struct {
		Host     string
		Port     string
		Name     string
		User     string
		Password string
		// TablePrefix is prepended to every table name (course store only).
		TablePrefix string
	}

	Config struct {
		Debug        bool
		TestMode     bool
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		AppName      string
		RollbarToken string

		// CourseDB is the course-delivery system of record (enrollments,
		// modules, completion, grades, activity logs).
		CourseDB DatabaseConfig
		// EngagementDB is the engagement/marketplace system of record
		// (accounts, posts, ideas, matches, pitches).
		EngagementDB DatabaseConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Kipimo")
	conf.SetDefault("courseDBHost", "127.0.0.1")
	conf.SetDefault("courseDBPort", "3306")
	conf.SetDefault("courseDBName", "coursedb")
	conf.SetDefault("courseDBUser", "kipimo")
	conf.SetDefault("courseDBPassword", "")
	conf.SetDefault("courseDBTablePrefix", "mdl_")
	conf.SetDefault("engagementDBHost", "127.0.0.1")
	conf.SetDefault("engagementDBPort", "3306")
	conf.SetDefault("engagementDBName", "engagement")
	conf.SetDefault("engagementDBUser", "kipimo")
	conf.SetDefault("engagementDBPassword", "")

	env := os.Getenv("ENV")
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:        conf.GetBool("debug"),
		TestMode:     testMode,
		Env:          env,
		Build:        conf.GetString("build"),
		AppName:      conf.GetString("appName"),
		RollbarToken: conf.GetString("rollbarToken"),
		CourseDB: DatabaseConfig{
			Host:        conf.GetString("courseDBHost"),
			Port:        conf.GetString("courseDBPort"),
			Name:        conf.GetString("courseDBName"),
			User:        conf.GetString("courseDBUser"),
			Password:    conf.GetString("courseDBPassword"),
			TablePrefix: conf.GetString("courseDBTablePrefix"),
		},
		EngagementDB: DatabaseConfig{
			Host:     conf.GetString("engagementDBHost"),
			Port:     conf.GetString("engagementDBPort"),
			Name:     conf.GetString("engagementDBName"),
			User:     conf.GetString("engagementDBUser"),
			Password: conf.GetString("engagementDBPassword"),
		},
	}
}
