package core

import "time"

type ProviderConfig interface {
	GetProvider() string
	GetModel() string
	GetAPIKey() string
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetStreamIdleTimeout() time.Duration
}
