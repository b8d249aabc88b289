// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by background workers talking to internal services.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
