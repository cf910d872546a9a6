package main

// @title           Maintenance Agent API
// @version         1.0
// @description     Visual inspection diagnostics. Classifies an inspection image, retrieves the matching equipment manual passages and recommends a maintenance action. Every diagnosis is logged for the maintenance dashboard.

// @contact.name   Maintenance Agent OSS
// @contact.url    https://github.com/custodia-labs/maintenance-agent/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"os"

	_ "github.com/custodia-labs/maintenance-agent/docs"
	"github.com/custodia-labs/maintenance-agent/internal/adapters/driving/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)
	// cobra reports the error itself
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
