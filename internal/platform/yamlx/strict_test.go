// SPDX-License-Identifier: MIT

package yamlx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type target struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func TestDecodeStrict(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        target
		wantUnknown bool
		wantErr     error
	}{
		{name: "valid", input: "name: a\nport: 3000\n", want: target{Name: "a", Port: 3000}},
		{name: "empty", input: ""},
		{name: "unknown key", input: "name: a\nprot: 1\n", wantUnknown: true},
		{name: "trailing document", input: "name: a\n---\nname: b\n", wantErr: ErrTrailingContent},
		{name: "wrong type", input: "port: abc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got target
			err := DecodeStrict([]byte(tt.input), &got)
			switch {
			case tt.wantUnknown:
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownField), "got %v", err)
				assert.Contains(t, err.Error(), "prot")
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.name == "wrong type":
				require.Error(t, err)
				assert.False(t, errors.Is(err, ErrUnknownField))
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
