// Package autoload registers every built-in channel.
package autoload

import (
	_ "promptgate/pkg/channels/web"
)
