package convert_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/headfinder/pkg/convert"
)

func TestStrictBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{in: "true", want: true},
		{in: "false", want: false},
		{in: "True", wantErr: true},
		{in: "1", wantErr: true},
		{in: " true", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := convert.StrictBool(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, convert.ErrNotStrictBool)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
