/*
versions handles config upgrades and downgrades

  - Versions must be stateful, and not rely upon type definitions in the config pkg. Instead versions must localise types to avoid issues with subsequent changes

  - Versions must upgrade to the next version. Do not retrospectively change versions to match new type changes. Create a new version

  - Versions must be registered in import.go
*/
package versions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/buger/jsonparser"
	"github.com/xnoquant/xno/common"
	"github.com/xnoquant/xno/log"
)

// UseLatestVersion used as version param to Deploy to automatically use the latest version
const UseLatestVersion = math.MaxUint16

var (
	errVersionIncompatible   = errors.New("version does not implement ConfigVersion")
	errAlreadyRegistered     = errors.New("version is already registered")
	errNoVersions            = errors.New("error retrieving latest config version: No config versions are registered")
	errUpgrade               = errors.New("error upgrading config")
	errDowngrade             = errors.New("error downgrading config")
	errConfigVersionUnavail  = errors.New("version is higher than max registered version")
	errConfigVersionNegative = errors.New("version is negative")
	errConfigVersionMax      = errors.New("version is above max version")
	errTargetVersion         = errors.New("target downgrade version is higher than the latest available")
	errMissingVersion        = errors.New("version is not registered")
)

// ConfigVersion is a version that affects the general configuration
type ConfigVersion interface {
	UpgradeConfig(context.Context, []byte) ([]byte, error)
	DowngradeConfig(context.Context, []byte) ([]byte, error)
}

// manager contains versions registered during import init
type manager struct {
	m        sync.RWMutex
	versions []any
}

// Manager is a public instance of the config version manager
var Manager = &manager{}

// Deploy upgrades or downgrades the config between versions
// Param latest may be UseLatestVersion to upgrade to the newest registered
// version. A config without a version key is treated as pre-versioned and
// is run through every version from v0
func (m *manager) Deploy(ctx context.Context, j []byte, latest uint16) ([]byte, error) {
	if err := m.checkVersions(); err != nil {
		return j, err
	}

	target, err := m.latest()
	if err != nil {
		return j, err
	}
	if latest != UseLatestVersion {
		if latest > target {
			return j, fmt.Errorf("%w: %d > %d", errTargetVersion, latest, target)
		}
		target = latest
	}

	m.m.RLock()
	defer m.m.RUnlock()

	current := -1
	current64, err := jsonparser.GetInt(j, "version")
	switch {
	case errors.Is(err, jsonparser.KeyPathNotFoundError):
	case err != nil:
		return j, fmt.Errorf("%w `version`: %w", common.ErrGettingField, err)
	case current64 < 0:
		return j, fmt.Errorf("%w: %d", errConfigVersionNegative, current64)
	case current64 >= UseLatestVersion:
		return j, fmt.Errorf("%w: %d", errConfigVersionMax, current64)
	case int(current64) > len(m.versions)-1:
		return j, fmt.Errorf("%w: %d", errConfigVersionUnavail, current64)
	default:
		current = int(current64)
	}

	if current == int(target) {
		return j, nil
	}

	for current != int(target) {
		next := current + 1
		action := "upgrade"
		configMethod := ConfigVersion.UpgradeConfig
		wrapErr := errUpgrade
		patchVersion := next

		if int(target) < current {
			next = current - 1
			action = "downgrade"
			configMethod = ConfigVersion.DowngradeConfig
			wrapErr = errDowngrade
			patchVersion = current
		}

		log.Debugf(log.ConfigMgr, "Running %s to config version %v", action, next)

		patch, ok := m.versions[patchVersion].(ConfigVersion)
		if !ok {
			return j, fmt.Errorf("%w: %d", errMissingVersion, patchVersion)
		}
		if j, err = configMethod(patch, ctx, j); err != nil {
			return j, fmt.Errorf("%w to %v: %w", wrapErr, next, err)
		}

		current = next

		if j, err = jsonparser.Set(j, []byte(strconv.Itoa(current)), "version"); err != nil {
			return j, fmt.Errorf("%w `version` during %s to %v: %w", common.ErrSettingField, action, next, err)
		}
	}

	log.Debugln(log.ConfigMgr, "Version management finished")

	return j, nil
}

// checkVersions ensures every registered slot holds a ConfigVersion
func (m *manager) checkVersions() error {
	m.m.RLock()
	defer m.m.RUnlock()
	var errs error
	for ver, v := range m.versions {
		if _, ok := v.(ConfigVersion); !ok {
			errs = common.AppendError(errs, fmt.Errorf("%w: %d", errVersionIncompatible, ver))
		}
	}
	return errs
}

// registerVersion takes instances of config versions and adds them to the registry
// Versions may be registered out of order, but Deploy will error while gaps remain
func (m *manager) registerVersion(ver int, v any) {
	m.m.Lock()
	defer m.m.Unlock()
	if ver >= len(m.versions) {
		m.versions = append(m.versions, make([]any, ver+1-len(m.versions))...)
	}
	if m.versions[ver] != nil {
		panic(fmt.Errorf("%w: %d", errAlreadyRegistered, ver))
	}
	m.versions[ver] = v
}

// latest returns the highest version number
func (m *manager) latest() (uint16, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if len(m.versions) == 0 {
		return 0, errNoVersions
	}
	return uint16(len(m.versions) - 1), nil //nolint:gosec // len(m.versions) is bounded by registration
}

// Version returns a version registered by init or nil if not found
func (m *manager) Version(n uint16) ConfigVersion {
	m.m.RLock()
	defer m.m.RUnlock()
	if int(n) >= len(m.versions) {
		return nil
	}
	v, _ := m.versions[n].(ConfigVersion)
	return v
}

// Latest returns the highest registered version number
func (m *manager) Latest() (uint16, error) {
	return m.latest()
}
