// Copyright 2026 eidsim contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eidsim/eidsim/pkg/private/serrors"
)

func TestWrapSupportsIs(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := serrors.Wrap("failed", sentinel, "key", "value")
	assert.ErrorIs(t, err, sentinel)
}

func TestErrorFormat(t *testing.T) {
	testCases := map[string]struct {
		err      error
		expected string
	}{
		"plain": {
			err:      serrors.New("simple"),
			expected: "simple",
		},
		"with context": {
			err:      serrors.New("bad tag", "tag", "0x83"),
			expected: "bad tag {tag=0x83}",
		},
		"sorted context": {
			err:      serrors.New("msg", "b", 2, "a", 1),
			expected: "msg {a=1; b=2}",
		},
		"wrapped": {
			err:      serrors.Wrap("outer", errors.New("inner"), "k", "v"),
			expected: "outer {k=v}: inner",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestList(t *testing.T) {
	assert.NoError(t, serrors.List{}.ToError())
	errs := serrors.List{serrors.New("one"), serrors.New("two")}
	assert.EqualError(t, errs.ToError(), "[ one; two ]")
}
