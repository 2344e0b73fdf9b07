package config

import "os"

func IsDebug() bool {
	return os.Getenv("CUURI_DEBUG") == "1"
}
