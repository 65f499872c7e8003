// Package api holds the OpenAPI spec served by the Swagger UI.
package api

import _ "embed"

//go:embed openapi.json
var OpenAPISpec []byte
