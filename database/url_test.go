package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructDatabaseURL(t *testing.T) {
	tests := []struct {
		name         string
		baseURL      string
		databaseName string
		want         string
	}{
		{
			name:    "no database name keeps url",
			baseURL: "postgres://u:p@localhost:5432/cardroom",
			want:    "postgres://u:p@localhost:5432/cardroom",
		},
		{
			name:         "appends name and sslmode",
			baseURL:      "postgres://u:p@localhost:5432/",
			databaseName: "cardroom",
			want:         "postgres://u:p@localhost:5432/cardroom?sslmode=disable",
		},
		{
			name:         "keeps existing query parameters",
			baseURL:      "postgres://u:p@localhost:5432?connect_timeout=5",
			databaseName: "cardroom",
			want:         "postgres://u:p@localhost:5432/cardroom?connect_timeout=5&sslmode=disable",
		},
		{
			name:         "respects explicit sslmode",
			baseURL:      "postgres://u:p@db:5432?sslmode=require",
			databaseName: "cardroom",
			want:         "postgres://u:p@db:5432/cardroom?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConstructDatabaseURL(tt.baseURL, tt.databaseName))
		})
	}
}
