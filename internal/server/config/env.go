package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/gmapauth/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// parseEnv overlays AUTH_* environment variables onto config. Variables that
// are not set leave the current value untouched.
//
// A dotenv file is loaded first: the one named by -env-file, or ./.env when
// present. Values already in the process environment win over the file.
// A malformed file or variable panics, as a broken config file does.
func parseEnv(config *Config) {
	loadEnvFile(flagx.EnvFileFlags())

	if err := env.Parse(config); err != nil {
		panic(err)
	}
}

func loadEnvFile(path string) {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	err := godotenv.Load(path)
	if err == nil {
		return
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return
	}
	panic(err)
}
