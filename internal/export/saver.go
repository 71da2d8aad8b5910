/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Saver hands encoded bytes to the host's save mechanism and returns where
// they went (a path, URI or empty when the host decides later).
type Saver interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, name string, data []byte) (string, error)

func (f SaverFunc) Save(ctx context.Context, name string, data []byte) (string, error) {
	return f(ctx, name, data)
}

// maxDuplicates bounds the name-N probing in DirSaver.
const maxDuplicates = 999

// DirSaver writes exports into Dir. Existing files are never overwritten;
// a numeric suffix is added instead (card.png, card-2.png, card-3.png...).
type DirSaver struct {
	Dir string
}

func (d DirSaver) Save(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; i <= maxDuplicates; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
		}
		path := filepath.Join(d.Dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", candidate, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("write %s: %w", candidate, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close %s: %w", candidate, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("too many files named %s in %s", name, d.Dir)
}
