package v1

import (
	"context"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/xnoquant/xno/common"
)

// Version adds the execution lot size and the stock fee rate, which were
// previously hard coded
type Version struct{}

var defaults = []struct {
	path  []string
	value []byte
}{
	{[]string{"execution", "lotSize"}, []byte(`100`)},
	{[]string{"fees", "stockPercent"}, []byte(`0.0015`)},
}

// UpgradeConfig sets each default when it is missing
func (*Version) UpgradeConfig(_ context.Context, j []byte) ([]byte, error) {
	for _, d := range defaults {
		_, _, _, err := jsonparser.Get(j, d.path...)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, jsonparser.KeyPathNotFoundError):
			return j, fmt.Errorf("%w `%v`: %w", common.ErrGettingField, d.path, err)
		}
		if j, err = jsonparser.Set(j, d.value, d.path...); err != nil {
			return j, fmt.Errorf("%w `%v`: %w", common.ErrSettingField, d.path, err)
		}
	}
	return j, nil
}

// DowngradeConfig removes the added settings
func (*Version) DowngradeConfig(_ context.Context, j []byte) ([]byte, error) {
	for _, d := range defaults {
		j = jsonparser.Delete(j, d.path...)
	}
	return j, nil
}
