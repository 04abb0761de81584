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

package agenterrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kpekel/agentrun/pkg/agenterrors"
	"github.com/stretchr/testify/assert"
)

func TestInterpreterError_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("division by zero")
	err := &agenterrors.InterpreterError{Reason: "ZeroDivisionError", Line: 7, Err: cause}

	assert.Contains(t, err.Error(), "line 7")
	assert.ErrorIs(t, err, cause)
}

func TestInterpreterError_NoLineOmitsLineNumber(t *testing.T) {
	err := &agenterrors.InterpreterError{Reason: "unknown name 'foo'"}
	assert.NotContains(t, err.Error(), "line")
}

func TestErrorsAs_SelectsTheRightKind(t *testing.T) {
	wrapped := fmt.Errorf("step failed: %w", &agenterrors.MaxStepsExceeded{MaxSteps: 10})

	var maxSteps *agenterrors.MaxStepsExceeded
	assert.True(t, errors.As(wrapped, &maxSteps))
	assert.Equal(t, 10, maxSteps.MaxSteps)

	var cancelled *agenterrors.Cancelled
	assert.False(t, errors.As(wrapped, &cancelled))
}

func TestCancelled_Unwrap(t *testing.T) {
	ctxErr := errors.New("context canceled")
	err := &agenterrors.Cancelled{Err: ctxErr}
	assert.ErrorIs(t, err, ctxErr)
}

func TestToolsetSetupError_Message(t *testing.T) {
	err := &agenterrors.ToolsetSetupError{ToolsetName: "filesystem", Err: errors.New("connection refused")}
	assert.Contains(t, err.Error(), "filesystem")
	assert.Contains(t, err.Error(), "connection refused")
}
