package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB is a custom type for JSONB columns
type JSONB map[string]interface{}

// Value implements driver.Valuer
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONB", value)
	}

	result := make(JSONB)
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to decode JSONB: %w", err)
	}
	*j = result
	return nil
}
