package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

func TestParseRefs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []m.UnitRef
	}{
		{"empty", []string{}, []m.UnitRef{}},
		{
			"whole file",
			[]string{"app.py"},
			[]m.UnitRef{{Path: "app.py"}},
		},
		{
			"named unit",
			[]string{"app.py:Widget"},
			[]m.UnitRef{{Path: "app.py", Name: "Widget"}},
		},
		{
			"mixed",
			[]string{"a.py", "b.py:f"},
			[]m.UnitRef{{Path: "a.py"}, {Path: "b.py", Name: "f"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRefs(tt.args))
		})
	}
}

func TestRootCmdShowsHelp(t *testing.T) {
	cmd := baseRootCmd()

	assert.Equal(t, "pyshrink", cmd.Use)
	assert.NotEmpty(t, cmd.Long)
}
