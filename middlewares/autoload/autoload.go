// Package autoload imports every middleware plugin for its registration side
// effect.
package autoload

import (
	_ "wassistant/middlewares/waformat"
)
