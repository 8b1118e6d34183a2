// Package docs holds the general API annotations of the netenum API.
//
// Endpoint annotations live on the handlers in internal/api/handlers.
// Run `go generate ./docs` after changing any of them.
//
//go:generate swag init -g swagger_docs.go -d ./,../internal/api/handlers,../internal/scanning,../internal/services -o ./swagger --parseInternal
package docs

// @title NetEnum API
// @version 1.0
// @description Network enumeration service. Discovers hosts on a network,
// @description scans their open ports, probes HTTP services and serves the
// @description results as JSON, a D3 graph and a downloadable snapshot.
// @description
// @description ## Authentication
// @description Send `Authorization: Bearer <token>` on every request. The token is
// @description generated on first start and stored in the configured token file.
// @description `/api/v1/health` and the docs do not require a token.
//
// @contact.name NetEnum
// @contact.url https://github.com/anstrom/netenum
//
// @license.name MIT
//
// @host localhost:8000
// @BasePath /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token, e.g. "Bearer 3f9a..."
