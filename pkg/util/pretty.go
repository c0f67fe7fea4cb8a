package util

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tidwall/pretty"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PrettyJSON marshals a value and returns indented JSON
func PrettyJSON(val interface{}) ([]byte, error) {
	buf, err := json.Marshal(val)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal value")
	}

	return pretty.Pretty(buf), nil
}
