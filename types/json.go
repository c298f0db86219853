/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"database/sql/driver"
	"fmt"
)

// Jsonb is an opaque JSON document stored in a json/jsonb column.
// The raw text is written and read back as is; an empty Jsonb maps to SQL NULL.
type Jsonb []byte

// NewJsonb wraps raw JSON text. An empty string yields a nil (NULL) value.
func NewJsonb(raw string) Jsonb {
	if raw == "" {
		return nil
	}
	return Jsonb(raw)
}

// Raw returns the JSON text, or "" when the value is NULL.
func (j Jsonb) Raw() string {
	return string(j)
}

// IsNull reports whether the value maps to SQL NULL.
func (j Jsonb) IsNull() bool {
	return len(j) == 0
}

// Value implements driver.Valuer. The document is sent as text: lib/pq would
// encode a []byte argument as bytea, which jsonb does not accept.
func (j Jsonb) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *Jsonb) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(Jsonb(nil), v...)
	case string:
		*j = Jsonb(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return nil
}

// MarshalJSON emits the document verbatim, or null.
func (j Jsonb) MarshalJSON() ([]byte, error) {
	if j.IsNull() {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON keeps the raw document; a literal null becomes nil.
func (j *Jsonb) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append(Jsonb(nil), data...)
	return nil
}
