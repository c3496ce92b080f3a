package versions

import (
	v0 "github.com/xnoquant/xno/config/versions/v0"
	v1 "github.com/xnoquant/xno/config/versions/v1"
)

func init() {
	Manager.registerVersion(0, &v0.Version{})
	Manager.registerVersion(1, &v1.Version{})
}
