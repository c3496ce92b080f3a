package v0

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/xnoquant/xno/common"
)

// Version moves the settings of pre-versioned configs, which kept the bot at
// the top level with snake case keys, into the bot object
type Version struct{}

// legacyKeys maps top level legacy keys to their key inside bot
var legacyKeys = []struct{ old, new string }{
	{"bot_id", "id"},
	{"symbol", "symbol"},
	{"symbol_type", "symbolType"},
	{"timeframe", "timeframe"},
	{"init_cash", "initCash"},
	{"run_from", "runFrom"},
	{"run_to", "runTo"},
	{"bt_mode", "mode"},
	{"engine", "engine"},
}

// UpgradeConfig moves each legacy key into bot unless bot already sets it
func (*Version) UpgradeConfig(_ context.Context, j []byte) ([]byte, error) {
	for _, k := range legacyKeys {
		v, err := raw(j, k.old)
		if err != nil {
			if errors.Is(err, jsonparser.KeyPathNotFoundError) {
				continue
			}
			return j, fmt.Errorf("%w `%s`: %w", common.ErrGettingField, k.old, err)
		}
		if _, _, _, err := jsonparser.Get(j, "bot", k.new); err != nil {
			if j, err = jsonparser.Set(j, v, "bot", k.new); err != nil {
				return j, fmt.Errorf("%w `bot.%s`: %w", common.ErrSettingField, k.new, err)
			}
		}
		j = jsonparser.Delete(j, k.old)
	}
	return j, nil
}

// DowngradeConfig moves the bot settings back to the top level
func (*Version) DowngradeConfig(_ context.Context, j []byte) ([]byte, error) {
	for _, k := range legacyKeys {
		v, err := raw(j, "bot", k.new)
		if err != nil {
			if errors.Is(err, jsonparser.KeyPathNotFoundError) {
				continue
			}
			return j, fmt.Errorf("%w `bot.%s`: %w", common.ErrGettingField, k.new, err)
		}
		if j, err = jsonparser.Set(j, v, k.old); err != nil {
			return j, fmt.Errorf("%w `%s`: %w", common.ErrSettingField, k.old, err)
		}
		j = jsonparser.Delete(j, "bot", k.new)
	}
	if b, _, _, err := jsonparser.Get(j, "bot"); err == nil && len(bytes.TrimSpace(b)) == 2 {
		j = jsonparser.Delete(j, "bot")
	}
	return j, nil
}

// raw returns the value at keys as JSON, with quotes restored around strings
func raw(j []byte, keys ...string) ([]byte, error) {
	v, dataType, _, err := jsonparser.Get(j, keys...)
	if err != nil {
		return nil, err
	}
	if dataType == jsonparser.String {
		return append(append([]byte{'"'}, v...), '"'), nil
	}
	return bytes.Clone(v), nil
}
