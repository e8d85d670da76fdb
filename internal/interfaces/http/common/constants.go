package common

import "time"

const (
	// MaxRequestBody limits JSON request bodies for form and admin endpoints.
	MaxRequestBody = 1 << 20
	// MaxAreasPerRequest caps a single batch area creation.
	MaxAreasPerRequest = 50
	// RequestTimeout bounds the storage work done by one request.
	RequestTimeout = 5 * time.Second
)
