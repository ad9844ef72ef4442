package companies

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation collapses", "Acme, Inc.!!", "acme-inc"},
		{"plain words", "acme inc", "acme-inc"},
		{"trims edges", "  --Hello World--  ", "hello-world"},
		{"digits kept", "Team 42 Labs", "team-42-labs"},
		{"non ascii dropped", "Café Über", "caf-ber"},
		{"only symbols", "!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSlug(tt.in))
		})
	}
}

func TestGenerateSlug_DeterministicAndIdempotent(t *testing.T) {
	a := GenerateSlug("Acme, Inc.!!")
	assert.Equal(t, a, GenerateSlug("acme inc"))
	assert.Equal(t, a, GenerateSlug("Acme, Inc.!!"))
	assert.Equal(t, a, GenerateSlug(a))
}
