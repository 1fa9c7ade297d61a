// Package web carries static assets served by the API.
package web

import _ "embed"

// OpenAPI is the API description served at /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPI []byte
