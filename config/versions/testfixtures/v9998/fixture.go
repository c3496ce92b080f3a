package v9998

import (
	"context"
	"errors"
)

// Version is test fixture
type Version struct {
	ConfigErr bool
}

// Public Errors
var (
	ErrUpgrade   = errors.New("fixture refused to upgrade")
	ErrDowngrade = errors.New("fixture refused to downgrade")
)

// UpgradeConfig errors if v.ConfigErr is true
func (v *Version) UpgradeConfig(_ context.Context, c []byte) ([]byte, error) {
	if v.ConfigErr {
		return c, ErrUpgrade
	}
	return c, nil
}

// DowngradeConfig errors if v.ConfigErr is true
func (v *Version) DowngradeConfig(_ context.Context, c []byte) ([]byte, error) {
	if v.ConfigErr {
		return c, ErrDowngrade
	}
	return c, nil
}
