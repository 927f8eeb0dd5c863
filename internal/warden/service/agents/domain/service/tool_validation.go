package service

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
	"github.com/kiosk404/warden/pkg/utils/json"
)

var schemaCache sync.Map

// ValidateToolInput checks input against the tool's JSON schema. Tools
// without a schema accept any input.
func ValidateToolInput(tool entity.Tool, input entity.ToolInput) error {
	raw := bytes.TrimSpace(tool.Schema())
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	compiled, err := compileSchema(tool.Name(), raw)
	if err != nil {
		return errno.InvalidToolInput(tool.Name(), fmt.Errorf("compile schema: %w", err))
	}

	var decoded any
	if err := json.UnmarshalString(input.JSON(), &decoded); err != nil {
		return errno.InvalidToolInput(tool.Name(), err)
	}
	if err := compiled.Validate(decoded); err != nil {
		return errno.InvalidToolInput(tool.Name(), err)
	}
	return nil
}

func compileSchema(name string, schema []byte) (*jsonschema.Schema, error) {
	key := string(schema)
	if cached, ok := schemaCache.Load(key); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString(name+".schema.json", key)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}
