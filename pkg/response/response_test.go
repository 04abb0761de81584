// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package response_test

import (
	"testing"

	"github.com/kpekel/agentrun/pkg/response"
	"github.com/stretchr/testify/assert"
)

func TestResponse_FromTupleAndTupleRoundTrip(t *testing.T) {
	info := map[string]interface{}{"state": "executing"}
	r := response.FromTuple("raw text", 0.9, true, false, info)

	raw, score, terminated, truncated, gotInfo := r.Tuple()
	assert.Equal(t, "raw text", raw)
	assert.Equal(t, 0.9, score)
	assert.True(t, terminated)
	assert.False(t, truncated)
	assert.Equal(t, info, gotInfo)
}

func TestResponse_FromTupleNilInfoInitialized(t *testing.T) {
	r := response.FromTuple("raw", 0, false, false, nil)
	assert.NotNil(t, r.Info)
}

func TestResponse_IsDone(t *testing.T) {
	cases := []struct {
		name       string
		terminated bool
		truncated  bool
		want       bool
	}{
		{"neither", false, false, false},
		{"terminated", true, false, true},
		{"truncated", false, true, true},
		{"both", true, true, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := response.New("raw")
			r.Terminated = c.terminated
			r.Truncated = c.truncated
			assert.Equal(t, c.want, r.IsDone())
		})
	}
}

func TestNew_InitializesInfoMap(t *testing.T) {
	r := response.New("raw")
	assert.NotNil(t, r.Info)
	assert.Empty(t, r.Info)
}
