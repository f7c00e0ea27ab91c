package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldAutoMigrate(t *testing.T) {
	tests := []struct {
		name  string
		mode  string
		force bool
		want  bool
	}{
		{"debug 默认迁移", "debug", false, true},
		{"release 默认跳过", "release", false, false},
		{"release 显式开启", "release", true, true},
		{"debug 显式开启", "debug", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAutoMigrate(tt.mode, tt.force))
		})
	}
}
