package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	p, err := Resolve("nextjs")
	require.NoError(t, err)

	assert.Equal(t, "Next.js", p.Label)
	assert.Equal(t, ShapeServer, p.Shape)
	assert.Equal(t, 3000, p.Port)
	assert.Equal(t, ".next", p.OutputDir)
}

func TestResolve_Unknown(t *testing.T) {
	_, err := Resolve("unknownfw")
	assert.ErrorIs(t, err, ErrUnknownFramework)
	assert.Contains(t, err.Error(), "unknownfw")
}

func TestList_DeterministicOrder(t *testing.T) {
	first := List()
	second := List()

	assert.Equal(t, []string{"nextjs", "react", "vue", "angular", "static", "node"}, first)
	assert.Equal(t, first, second)
}

func TestList_EveryIdentifierResolves(t *testing.T) {
	for _, id := range List() {
		p, err := Resolve(id)
		require.NoError(t, err, "framework %s", id)
		assert.Equal(t, id, p.ID)
		assert.NotEmpty(t, p.StartCommand, "framework %s", id)
		assert.GreaterOrEqual(t, p.Port, 1, "framework %s", id)
		assert.LessOrEqual(t, p.Port, 65535, "framework %s", id)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		deps map[string]string
		want string
	}{
		{
			// A Next.js project always declares react too; the
			// meta-framework must win.
			name: "next takes precedence over react",
			deps: map[string]string{"next": "14.0.0", "react": "18.2.0", "react-dom": "18.2.0"},
			want: "nextjs",
		},
		{
			name: "plain react",
			deps: map[string]string{"react": "18.2.0", "react-dom": "18.2.0"},
			want: "react",
		},
		{
			name: "vue",
			deps: map[string]string{"vue": "3.4.0"},
			want: "vue",
		},
		{
			name: "angular",
			deps: map[string]string{"@angular/core": "17.0.0"},
			want: "angular",
		},
		{
			name: "express server",
			deps: map[string]string{"express": "4.18.0"},
			want: "node",
		},
		{
			name: "nothing matches falls back to static",
			deps: map[string]string{"lodash": "4.17.21"},
			want: "static",
		},
		{
			name: "empty dependency set",
			deps: nil,
			want: "static",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.deps)
			assert.Equal(t, tt.want, got)

			// Whatever Detect returns must resolve.
			_, err := Resolve(got)
			assert.NoError(t, err)
		})
	}
}
