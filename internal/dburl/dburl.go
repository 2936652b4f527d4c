/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package dburl parses DATABASE_URL values into a driver name and DSN.
package dburl

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

const (
	schemePlain     = "sqlite://"
	schemeEncrypted = "sqlite+sqlcipher://"

	driverPlain     = "sqlite3"
	driverEncrypted = "sqlcipher"

	keyParam = "_pragma_key"
)

var (
	ErrUnsupportedURL    = errors.New("unsupported database url")
	ErrMissingKey        = errors.New("database key is required")
	ErrDriverUnavailable = errors.New("encrypted sqlite driver is not available")
)

// Target is a parsed DATABASE_URL.
type Target struct {
	Driver    string
	Path      string
	Params    url.Values
	Memory    bool
	Encrypted bool
}

// ParseURL turns sqlite:///relative, sqlite:////absolute and
// sqlite+sqlcipher:///... URLs into a driver name and DSN. Encrypted URLs
// fail closed when no sqlcipher driver is linked in, and get the key
// injected unless the URL already carries one.
func ParseURL(rawURL, key string) (*Target, error) {
	var (
		rest string
		t    Target
	)
	switch {
	case strings.HasPrefix(rawURL, schemeEncrypted):
		rest = strings.TrimPrefix(rawURL, schemeEncrypted)
		t.Driver = driverEncrypted
		t.Encrypted = true
	case strings.HasPrefix(rawURL, schemePlain):
		rest = strings.TrimPrefix(rawURL, schemePlain)
		t.Driver = driverPlain
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, redact(rawURL))
	}

	query := ""
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest, query = rest[:i], rest[i+1:]
	}
	params, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("%w: bad query string: %v", ErrUnsupportedURL, err)
	}
	t.Params = params

	// The host part is empty for sqlite URLs; one slash separates it from the path.
	rest = strings.TrimPrefix(rest, "/")
	switch rest {
	case "", ":memory:":
		t.Path = ":memory:"
		t.Memory = true
	default:
		t.Path = rest
	}

	if t.Encrypted {
		if !slices.Contains(sql.Drivers(), driverEncrypted) {
			return nil, ErrDriverUnavailable
		}
		if t.Params.Get(keyParam) == "" {
			if key == "" {
				return nil, ErrMissingKey
			}
			t.Params.Set(keyParam, key)
		}
	}

	t.Params.Set("_foreign_keys", "1")
	t.Params.Set("_busy_timeout", "5000")
	t.Params.Set("_txlock", "immediate")
	if !t.Memory {
		t.Params.Set("_journal_mode", "WAL")
		t.Params.Set("_synchronous", "NORMAL")
		t.Params.Set("_cache_size", "1000")
	}
	return &t, nil
}

// DSN renders the target as a go-sqlite3 style connection string.
func (t *Target) DSN() string {
	return t.Path + "?" + t.Params.Encode()
}

// redact hides any key in a URL before it reaches an error or a log.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i] + "?..."
	}
	return rawURL
}
